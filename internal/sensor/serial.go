package sensor

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// SerialOpener returns an Opener for a UART at baud 8N1. Reads return
// after readTimeout with no data so the poller can observe cancellation.
func SerialOpener(port string, baud int, readTimeout time.Duration) Opener {
	return func() (io.ReadCloser, error) {
		p, err := serial.Open(port, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", port, err)
		}
		if err := p.SetReadTimeout(readTimeout); err != nil {
			p.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", port, err)
		}
		return p, nil
	}
}
