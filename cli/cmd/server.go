package cmd

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/wkalt/tsjoin/cli/util"
	"github.com/wkalt/tsjoin/service"
	"github.com/wkalt/tsjoin/storage"
	"github.com/wkalt/tsjoin/util/log"
)

var (
	serverConfig     string
	serverPort       int
	serverCacheRows  int64
	serverLogLevel   string
	serverDBPath     string
	serverPprofAddr  string
	allowedOrigins   []string
	serverSharedKey  string
	serverDataDir    string
	serverS3Endpoint string

	// S3 storage provider options
	serverS3AccessKey string
	serverS3SecretKey string
	serverS3Bucket    string
	serverS3Prefix    string
	serverS3UseTLS    bool
	serverS3Region    string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the tsjoin server",
	Long: `Start the tsjoin server.

Flags may also be supplied in the [server] section of an INI file passed with
--config, using the flag names as keys. Flags on the command line take
precedence over the file.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if serverConfig != "" {
			checkErr(util.ApplyConfig(cmd.Flags(), serverConfig, "server"))
		}
		logLevel, err := log.ParseLevel(serverLogLevel)
		checkErr(err)

		opts := []service.Option{
			service.WithPort(serverPort),
			service.WithCacheRows(serverCacheRows),
			service.WithLogLevel(logLevel),
			service.WithDataDir(serverDataDir),
			service.WithDatabasePath(serverDBPath),
			service.WithSharedKey(serverSharedKey),
			service.WithPprofAddr(serverPprofAddr),
		}
		if serverS3Endpoint != "" {
			if serverS3Bucket == "" {
				bailf("--s3-bucket is required with --s3-endpoint")
			}
			mc, err := minio.New(serverS3Endpoint, &minio.Options{
				Creds:  credentials.NewStaticV4(serverS3AccessKey, serverS3SecretKey, ""),
				Secure: serverS3UseTLS,
				Region: serverS3Region,
			})
			if err != nil {
				bailf("error creating S3 client: %s", err)
			}
			opts = append(opts, service.WithStorageProvider(
				storage.NewS3Store(mc, serverS3Bucket, serverS3Prefix),
			))
		}
		if len(allowedOrigins) > 0 {
			opts = append(opts, service.WithAllowedOrigins(allowedOrigins))
		}
		svc := service.NewService()
		if err := svc.Start(ctx, opts...); err != nil {
			bailf("Shutdown error: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&serverConfig, "config", "", "", "INI config file")
	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 8089, "Port to listen on")
	serverCmd.Flags().Int64VarP(&serverCacheRows, "cache-rows", "c", 1_000_000, "Table cache size in rows")
	serverCmd.Flags().StringVarP(&serverDataDir, "data-dir", "d", "data", "Data directory")
	serverCmd.Flags().StringVarP(&serverDBPath, "db-path", "", "tsjoin.db", "catalog database location")
	serverCmd.Flags().StringVarP(&serverLogLevel, "log-level", "l", "info", "Log level")
	serverCmd.Flags().StringVarP(&serverSharedKey, "shared-key", "", "", "shared authentication key")
	serverCmd.Flags().StringVarP(&serverPprofAddr, "pprof-addr", "", "", "pprof listen address")
	serverCmd.Flags().StringSliceVarP(&allowedOrigins, "allowed-origins", "o", []string{}, "Allowed origins")

	serverCmd.Flags().StringVar(&serverS3Endpoint, "s3-endpoint", "", "S3 endpoint (for S3 storage)")
	serverCmd.Flags().StringVar(&serverS3AccessKey, "s3-access-key-id", "", "S3 access key ID (for S3 storage)")
	serverCmd.Flags().StringVar(&serverS3SecretKey, "s3-secret-key", "", "S3 secret key (for S3 storage)")
	serverCmd.Flags().StringVar(&serverS3Bucket, "s3-bucket", "", "S3 bucket (for S3 storage)")
	serverCmd.Flags().StringVar(&serverS3Prefix, "s3-prefix", "", "S3 key prefix (for S3 storage)")
	serverCmd.Flags().BoolVarP(&serverS3UseTLS, "s3-tls", "t", false, "Use TLS (for S3 storage)")
	serverCmd.Flags().StringVar(&serverS3Region, "s3-region", "", "S3 region")
}
