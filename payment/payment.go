// Package payment is the client of the external payment verifier. The
// proof is opaque to the backend: it goes to the verifier as-is and comes
// back as a settlement reference or a rejection.
package payment

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/robolink/robolink"
)

// RestVerifier returns a gate checking proofs against the verifier
// service. Rejections wrap robolink.ErrPaymentRejected; transport
// failures do not, so the caller can tell "pay again" from "try later".
func RestVerifier(baseUrl string) robolink.PaymentGate {
	return func(proof string, payTo string) (string, error) {
		payload, err := json.Marshal(map[string]string{
			"proof": proof,
			"payTo": payTo,
		})
		if err != nil {
			return "", fmt.Errorf("marshal verify request: %w", err)
		}

		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodPost)
		req.SetRequestURI(baseUrl + "/verify")
		req.Header.SetContentType(fiber.MIMEApplicationJSON)
		req.SetBody(payload)

		if err := agent.Parse(); err != nil {
			return "", fmt.Errorf("agent parse: %w", err)
		}
		statusCode, body, errs := agent.Bytes()
		if len(errs) != 0 {
			return "", fmt.Errorf("agent bytes: %v", errs)
		}
		if statusCode == fiber.StatusPaymentRequired || statusCode == fiber.StatusBadRequest {
			return "", fmt.Errorf("%w: %s", robolink.ErrPaymentRejected, string(body))
		}
		if statusCode != fiber.StatusOK {
			return "", fmt.Errorf("invalid status code %d: %s", statusCode, string(body))
		}

		var response struct {
			Reference string `json:"reference"`
		}
		if err := json.Unmarshal(body, &response); err != nil {
			return "", fmt.Errorf("unmarshal body: %w", err)
		}
		return response.Reference, nil
	}
}

// MockVerifier accepts every proof and echoes it as the reference.
func MockVerifier() robolink.PaymentGate {
	return func(proof string, payTo string) (string, error) {
		return "mock-" + proof, nil
	}
}
