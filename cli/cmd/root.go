package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/tsjoin/cli/client"
)

var (
	serverURL string
	sharedKey string
)

var rootCmd = &cobra.Command{
	Use:   "tsjoin",
	Short: "tsjoin as-of join server and client",
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(serverURL, sharedKey)
}

func bailf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, color.RedString(format, args...))
	os.Exit(1)
}

func checkErr(err error) {
	if err != nil {
		bailf("error: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server-url", "", "http://localhost:8089", "server-url")
	rootCmd.PersistentFlags().StringVarP(&sharedKey, "shared-key", "", "", "shared key to use for authentication")
}
