package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DeliveryError classifica a falha de entrega:
// Permanent = payload rejeitado, não adianta tentar de novo (quarentena).
// Transient = rede/timeout/5xx, o job volta pra fila com backoff.
type DeliveryError struct {
	StatusCode int
	Message    string
	Permanent  bool
}

func (e *DeliveryError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("brevo api error %d: %s", e.StatusCode, e.Message)
	}
	return "brevo request error: " + e.Message
}

func IsPermanent(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Permanent
}

type Client struct {
	apiKey  string
	baseURL string
	dryRun  bool
	http    *http.Client
}

func NewClient(apiKey, baseURL string, dryRun bool) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		dryRun:  dryRun,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Deliver envia o snapshot pra Brevo. As duas operações
// (upsert_contact e update_after_purchase) usam o mesmo endpoint de
// upsert; o que muda é o payload que veio congelado da outbox.
func (c *Client) Deliver(ctx context.Context, operationType string, payload []byte) (string, error) {
	url := c.baseURL + "/contacts"

	if c.dryRun {
		log.Printf("🧪 Brevo dry run: POST %s op=%s payload=%s", url, operationType, string(payload))
		return "dry-run", nil
	}

	if c.apiKey == "" {
		// Sem chave configurada não existe tentativa que vá funcionar
		return "", &DeliveryError{Message: "api key não configurada", Permanent: true}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return "", &DeliveryError{Message: err.Error(), Permanent: true}
	}

	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeout / DNS / conexão recusada: tudo retryável
		return "", &DeliveryError{Message: err.Error(), Permanent: false}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		permanent := resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests
		return "", &DeliveryError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Permanent:  permanent,
		}
	}

	// Contato criado volta {"id": N}; update de existente volta 204 vazio
	var response contactResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &response); err == nil && response.ID > 0 {
			return strconv.FormatInt(response.ID, 10), nil
		}
	}

	return "", nil
}
