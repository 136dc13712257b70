package cmd

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"partychat/pkg/chatclient"
)

var sendOpts struct {
	server  string
	room    string
	user    string
	file    string
	timeout time.Duration
}

var sendCmd = &cobra.Command{
	Use:   "send [text]",
	Short: "Post a text or file message to a room",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSend,
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendOpts.server, "server", "http://localhost:8080", "server base URL")
	f.StringVar(&sendOpts.room, "room", "lobby", "room name")
	f.StringVar(&sendOpts.user, "user", "", "display name (random if empty)")
	f.StringVar(&sendOpts.file, "file", "", "send this file instead of text")
	f.DurationVar(&sendOpts.timeout, "timeout", 30*time.Second, "overall timeout")
}

func runSend(cmd *cobra.Command, args []string) error {
	if sendOpts.file == "" && len(args) == 0 {
		return errors.New("nothing to send: pass text or --file")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), sendOpts.timeout)
	defer cancel()

	client, err := chatclient.New(sendOpts.server, sendOpts.room, sendOpts.user)
	if err != nil {
		return err
	}
	if err := client.Dial(ctx); err != nil {
		return err
	}
	defer client.Close()

	// the room answers every new connection with its history first
	if _, err := client.Next(); err != nil {
		return fmt.Errorf("failed to read room history: %w", err)
	}

	if sendOpts.file != "" {
		data, err := os.ReadFile(sendOpts.file)
		if err != nil {
			return err
		}
		name := filepath.Base(sendOpts.file)
		msg, err := client.SendFile(ctx, name, mime.TypeByExtension(filepath.Ext(name)), data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s as %s (%s)\n", name, client.User(), msg.ID)
		return nil
	}

	msg, err := client.SendText(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent message %s as %s\n", msg.ID, client.User())
	return nil
}
