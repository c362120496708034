package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/api"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local introspection server",
	Long: `Serves cache statistics, performance analytics and the device
profile over HTTP on the loopback interface, plus a WebSocket feed of
crop decisions at /ws.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", api.DefaultAddr, "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	processor, closeEngine, err := newEngine()
	if err != nil {
		return err
	}
	defer closeEngine()

	server := api.NewServer(processor, serveAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("Listening on %s\n", serveAddr)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-sigCh:
		fmt.Println("\nShutting down...")
		if err := server.Stop(); err != nil {
			return err
		}
	}
	return nil
}
