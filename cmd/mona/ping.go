package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/iosocket"
	"github.com/cuemby/mona/pkg/log"
	"github.com/cuemby/mona/pkg/tcpclient"
	"github.com/cuemby/mona/pkg/track"
)

var pingCmd = &cobra.Command{
	Use:   "ping [address]",
	Short: "Connect to a serve instance, send one message and print the echo",
	Long: `ping exercises TCPClient end to end: it connects, sends --message,
waits for the same bytes to come back, then disconnects.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPing,
}

func init() {
	pingCmd.Flags().String("message", "hello from mona ping", "message to send")
	pingCmd.Flags().Duration("timeout", 5*time.Second, "how long to wait for the echo")
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addr := ":9007"
	if len(args) == 1 {
		addr = args[0]
	}
	message, _ := cmd.Flags().GetString("message")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	owner := handler.New()
	pool := track.NewThreadPool(2, track.PriorityNormal, owner)
	defer pool.Join()
	io, err := iosocket.New(pool, cfg.Runtime.SocketBuffer)
	if err != nil {
		return fmt.Errorf("ping: start notifier: %w", err)
	}
	defer io.Close()

	client := tcpclient.New(io, pool, owner, nil)

	logger := log.WithComponent("ping")

	reply := make(chan []byte, 1)
	client.OnData = func(buf []byte) int {
		cp := make([]byte, len(buf))
		copy(cp, buf)
		reply <- cp
		return len(buf)
	}
	client.OnDisconnection.Subscribe(func(net.Addr) bool {
		logger.Info().Msg("disconnected")
		return false
	})

	if merr := client.Connect(addr); merr != nil {
		return fmt.Errorf("ping: connect %s: %w", addr, merr)
	}

	deadline := time.Now().Add(timeout)
	for !client.Connected() {
		owner.Flush()
		if time.Now().After(deadline) {
			return fmt.Errorf("ping: connect %s: timed out", addr)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if merr := client.Send([]byte(message)); merr != nil {
		return fmt.Errorf("ping: send: %w", merr)
	}

	for {
		owner.Flush()
		select {
		case buf := <-reply:
			fmt.Printf("echo: %s\n", buf)
			_ = client.Disconnect()
			owner.Flush()
			return nil
		default:
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("ping: no echo within %s", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
