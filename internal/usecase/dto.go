package usecase

// Resumos de cada etapa do run, reportados no final

type TrackSummary struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

type ReconcileSummary struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type DrainSummary struct {
	Reclaimed   int `json:"reclaimed"`
	Claimed     int `json:"claimed"`
	Delivered   int `json:"delivered"`
	Retried     int `json:"retried"`
	Quarantined int `json:"quarantined"`

	// Amostra dos erros que mandaram jobs pra quarentena (pro alerta)
	QuarantineErrors []string `json:"-"`
}

func (s *DrainSummary) recordQuarantineError(jobID string, err error) {
	if len(s.QuarantineErrors) >= 10 {
		return
	}
	s.QuarantineErrors = append(s.QuarantineErrors, jobID+": "+err.Error())
}
