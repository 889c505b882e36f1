package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/mona/pkg/file"
	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/iofile"
	"github.com/cuemby/mona/pkg/log"
	"github.com/cuemby/mona/pkg/merrors"
	"github.com/cuemby/mona/pkg/track"
)

var putCmd = &cobra.Command{
	Use:   "put <path> <data>",
	Short: "Append data to a file through IOFile and wait for it to flush",
	Long: `put exercises File/IOFile's write path: it opens path in append
mode, queues data, and blocks until OnFlush confirms the bytes landed
on disk.`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

func init() {
	putCmd.Flags().Duration("timeout", 5*time.Second, "how long to wait for the flush")
}

func runPut(cmd *cobra.Command, args []string) error {
	path, data := args[0], args[1]
	timeout, _ := cmd.Flags().GetDuration("timeout")

	owner := handler.New()
	pool := track.NewThreadPool(2, track.PriorityNormal, owner)
	defer pool.Join()
	iof := iofile.New(pool)

	logger := log.WithComponent("put")

	f := file.New(path, file.ModeAppend)
	if merr := f.Load(); merr != nil {
		return fmt.Errorf("put: load %s: %w", path, merr)
	}

	iof.Register(f, owner, 0, 0)

	flushed := make(chan bool, 1)
	f.OnFlush.Subscribe(func(deleted bool) bool {
		flushed <- true
		return true
	})
	f.OnError.Subscribe(func(merr *merrors.Error) bool {
		logger.Warn().Err(merr).Str("path", path).Msg("write error")
		return false
	})

	if merr := f.Write([]byte(data)); merr != nil {
		return fmt.Errorf("put: write: %w", merr)
	}

	deadline := time.Now().Add(timeout)
	for {
		owner.Flush()
		select {
		case <-flushed:
			fmt.Printf("flushed %d bytes to %s\n", len(data), path)
			iof.Deregister(f)
			return nil
		default:
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("put: flush of %s timed out", path)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
