package entity

// Linha do relatório de conversão por funil
type FunnelConversion struct {
	FunnelType     string `json:"funnel_type"`
	TotalEntries   int64  `json:"total_entries"`
	TotalPurchased int64  `json:"total_purchased"`
}

func (c FunnelConversion) ConversionRate() float64 {
	if c.TotalEntries == 0 {
		return 0.0
	}
	return float64(c.TotalPurchased) / float64(c.TotalEntries)
}
