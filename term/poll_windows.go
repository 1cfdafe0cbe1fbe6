//go:build windows

package term

import (
	"os"
	"time"
)

// Windows consoles have no poll(2); a pump goroutine blocks on stdin and
// feeds single bytes through a channel that pollByte can select on.
func (t *ANSI) pollByte(timeout time.Duration) (byte, bool, error) {
	t.readerOnce.Do(func() {
		go func() {
			buffer := make([]byte, 1)
			for {
				read, err := os.Stdin.Read(buffer)
				if err != nil {
					close(t.input)
					return
				}
				if read > 0 {
					t.input <- buffer[0]
				}
			}
		}()
	})

	select {
	case b, ok := <-t.input:
		return b, ok, nil
	case <-time.After(timeout):
		return 0, false, nil
	}
}
