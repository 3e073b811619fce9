package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-s string   producer token secret
//	-o string   object store backend: s3 | fs
//	-f string   filesystem object store root
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-m int      max upload size, bytes
//	-t int      signed URL validity, minutes
//	-l string   log backend: slog | zap
//
// Unknown arguments are filtered out first so that -c/-config and test
// runner flags do not collide.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-o", "-f", "-u", "-p", "-b", "-r", "-e", "-m", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.ProducerSecret, "s", config.ProducerSecret, "producer token secret")
	fs.StringVar(&config.ObjectStore, "o", config.ObjectStore, "object store backend (s3|fs)")
	fs.StringVar(&config.FSRoot, "f", config.FSRoot, "filesystem object store root")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.Int64Var(&config.MaxUploadBytes, "m", config.MaxUploadBytes, "max upload size (bytes)")
	ttl := fs.Int("t", int(config.SignedURLTTL.Minutes()), "signed URL validity (in minutes)")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend (slog|zap)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SignedURLTTL = time.Duration(*ttl) * time.Minute
}
