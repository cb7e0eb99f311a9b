package firmware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

func RestPinger(timeout time.Duration) Pinger {
	return func(host string) error {
		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodGet)
		req.SetRequestURI("http://" + host + "/ping")
		agent.Timeout(timeout)

		if err := agent.Parse(); err != nil {
			return fmt.Errorf("agent parse: %w", err)
		}
		statusCode, _, errs := agent.Bytes()
		if len(errs) != 0 {
			return fmt.Errorf("%w: %v", ErrUnreachable, errs)
		}
		if statusCode != fiber.StatusOK {
			return fmt.Errorf("%w: status code %d", ErrUnreachable, statusCode)
		}
		return nil
	}
}

func RestMotor(timeout time.Duration) Motor {
	return func(host string, direction string) error {
		if !ValidDirection(direction) {
			return fmt.Errorf("invalid direction %q", direction)
		}
		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodPost)
		req.SetRequestURI("http://" + host + "/motor/" + direction)
		agent.Timeout(timeout)

		if err := agent.Parse(); err != nil {
			return fmt.Errorf("agent parse: %w", err)
		}
		statusCode, body, errs := agent.Bytes()
		if len(errs) != 0 {
			return fmt.Errorf("%w: %v", ErrUnreachable, errs)
		}
		if statusCode != fiber.StatusOK {
			return fmt.Errorf("%w: status code %d: %s", ErrUnreachable, statusCode, string(body))
		}
		return nil
	}
}

func RestCamera(timeout time.Duration) Camera {
	return func(host string) ([]byte, error) {
		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodGet)
		req.SetRequestURI("http://" + host + "/capture")
		agent.Timeout(timeout)

		if err := agent.Parse(); err != nil {
			return nil, fmt.Errorf("agent parse: %w", err)
		}
		statusCode, body, errs := agent.Bytes()
		if len(errs) != 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, errs)
		}
		if statusCode != fiber.StatusOK {
			return nil, fmt.Errorf("%w: status code %d", ErrUnreachable, statusCode)
		}
		// agent reuses its buffers after release, keep our own copy
		frame := make([]byte, len(body))
		copy(frame, body)
		return frame, nil
	}
}

// Mock implementations for tests and payments-disabled demo setups.

func MockPinger(err error) Pinger {
	return func(host string) error {
		return err
	}
}

func MockMotor(err error) Motor {
	return func(host string, direction string) error {
		return err
	}
}

func MockCamera(frame []byte, err error) Camera {
	return func(host string) ([]byte, error) {
		return frame, err
	}
}
