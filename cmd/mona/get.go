package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/mona/pkg/file"
	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/iofile"
	"github.com/cuemby/mona/pkg/log"
	"github.com/cuemby/mona/pkg/merrors"
	"github.com/cuemby/mona/pkg/track"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Read a file through IOFile, re-issuing reads until end of file",
	Long: `get exercises File/IOFile's read path: it issues one read of
--buffer-size bytes at a time, printing each chunk as OnReaden delivers
it, and keeps re-issuing reads itself until the final chunk arrives
with End set.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().Int("buffer-size", 4096, "bytes requested per read")
	getCmd.Flags().Duration("timeout", 5*time.Second, "how long to wait for the file to finish reading")
}

func runGet(cmd *cobra.Command, args []string) error {
	path := args[0]
	bufSize, _ := cmd.Flags().GetInt("buffer-size")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	owner := handler.New()
	pool := track.NewThreadPool(2, track.PriorityNormal, owner)
	defer pool.Join()
	iof := iofile.New(pool)

	logger := log.WithComponent("get")

	f := file.New(path, file.ModeRead)
	if merr := f.Load(); merr != nil {
		return fmt.Errorf("get: load %s: %w", path, merr)
	}

	iof.Register(f, owner, 0, 0)

	type chunk struct {
		buf []byte
		end bool
	}
	chunks := make(chan chunk, 1)
	f.OnReaden.Subscribe(func(ev file.ReadenEvent) bool {
		chunks <- chunk{buf: ev.Buffer, end: ev.End}
		return false
	})
	f.OnError.Subscribe(func(merr *merrors.Error) bool {
		logger.Warn().Err(merr).Str("path", path).Msg("read error")
		return false
	})

	if merr := iof.Read(f, bufSize); merr != nil {
		return fmt.Errorf("get: start read: %w", merr)
	}

	deadline := time.Now().Add(timeout)
	total := 0
	for {
		owner.Flush()
		select {
		case c := <-chunks:
			total += len(c.buf)
			os.Stdout.Write(c.buf)
			if c.end {
				iof.Deregister(f)
				fmt.Fprintf(os.Stderr, "\nread %d bytes from %s\n", total, path)
				return nil
			}
			if merr := iof.Read(f, bufSize); merr != nil {
				return fmt.Errorf("get: resume read: %w", merr)
			}
			deadline = time.Now().Add(timeout)
		default:
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("get: read of %s timed out", path)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
