package config

import "flag"

// cliFlags collects raw command-line values before precedence resolution.
type cliFlags struct {
	env          string
	logLevel     string
	host         string
	port         string
	readTimeout  string
	writeTimeout string
	idleTimeout  string
	corsOrigins  string

	dataPath string
	dbPath   string

	blobBackend   string
	blobFSRoot    string
	publicBaseURL string
	s3Bucket      string

	uploadMaxBytes string
	uploadTimeout  string

	envFile string
}

// parseFlags parses args into a cliFlags. Secrets stay env-only on purpose.
func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("nixground", flag.ContinueOnError)

	fs.StringVar(&f.env, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	fs.StringVar(&f.host, "host", "", "Server bind address (default: all interfaces)")
	fs.StringVar(&f.port, "port", "", "Server port (default: 8080)")
	fs.StringVar(&f.readTimeout, "read-timeout", "", "HTTP read timeout (default: 15s)")
	fs.StringVar(&f.writeTimeout, "write-timeout", "", "HTTP write timeout (default: 15s)")
	fs.StringVar(&f.idleTimeout, "idle-timeout", "", "HTTP idle timeout (default: 60s)")
	fs.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated CORS origin allowlist")

	fs.StringVar(&f.dataPath, "data-path", "", "Base directory for server-managed files")
	fs.StringVar(&f.dbPath, "db-path", "", "SQLite database file")

	fs.StringVar(&f.blobBackend, "blob-backend", "", "Blob storage backend (fs or s3)")
	fs.StringVar(&f.blobFSRoot, "blob-fs-root", "", "Directory for the fs blob backend")
	fs.StringVar(&f.publicBaseURL, "public-base-url", "", "Base URL public image links are built from")
	fs.StringVar(&f.s3Bucket, "s3-bucket", "", "Bucket for the s3 blob backend")

	fs.StringVar(&f.uploadMaxBytes, "upload-max-bytes", "", "Maximum upload source size in bytes")
	fs.StringVar(&f.uploadTimeout, "upload-timeout", "", "Upload source download timeout (default: 30s)")

	fs.StringVar(&f.envFile, "env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}
