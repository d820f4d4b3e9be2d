package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"
	"zeptrion-bridge/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "zeptrion-bridge",
	Short:         "Local bridge for zeptrion Air hubs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "optional YAML settings file")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("log-format", logging.FormatAuto, "log format (auto, console, json)")
	pf.String("log-file", "", "also write JSON logs to this rotating file")
	pf.String("hub-host", "", "hub address, e.g. zapp-1234567.local (discovered when empty)")
	pf.Duration("timeout", 10*time.Second, "per request timeout towards the hub")
	pf.Duration("discover-wait", 5*time.Second, "how long to browse mDNS for hubs")
	cobra.CheckErr(viper.BindPFlags(pf))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(mcpCmd)
}

// initConfig layers flags over ZAPP_* environment variables over the optional YAML file.
func initConfig() {
	viper.SetEnvPrefix("ZAPP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", file, err)
			os.Exit(1)
		}
	}
}

func initLogging() (zerolog.Logger, io.Closer, error) {
	return logging.Init(logging.Options{
		Level:  viper.GetString("log-level"),
		Format: viper.GetString("log-format"),
		File:   viper.GetString("log-file"),
		Out:    os.Stderr,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
