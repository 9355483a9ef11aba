package shp

import (
	"io"
	"log"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// ReaderConfig holds the resolved options for a Reader.
type ReaderConfig struct {
	Encoding        string
	EncodingExplicit bool // true once WithEncoding has been applied
	EncodingErrors  EncodingErrorPolicy
	Verbose         bool
	Logger          *log.Logger
}

// DefaultReaderConfig returns the baseline configuration: DefaultDbfEncoding,
// PolicyStrict, verbose, logging discarded (spec.md §6).
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		Encoding:       DefaultDbfEncoding,
		EncodingErrors: PolicyStrict,
		Verbose:        true,
		Logger:         discardLogger(),
	}
}

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*ReaderConfig)

// WithEncoding overrides the dbf text codepage. Because it is an explicit
// caller choice, a .cpg sidecar will not override it (spec.md §4.5).
func WithEncoding(name string) ReaderOption {
	return func(c *ReaderConfig) {
		c.Encoding = name
		c.EncodingExplicit = true
	}
}

// WithEncodingErrors selects how undecodable dbf text is handled.
func WithEncodingErrors(policy EncodingErrorPolicy) ReaderOption {
	return func(c *ReaderConfig) { c.EncodingErrors = policy }
}

// WithVerbose enables warning-level diagnostics (shape records with an
// unknown type code that are read as Null, dbf cells that degrade to a
// missing value or to text because they don't parse as their declared
// kind) on the configured logger.
func WithVerbose(v bool) ReaderOption {
	return func(c *ReaderConfig) { c.Verbose = v }
}

// WithLogger installs a custom logger; nil disables logging entirely.
func WithLogger(l *log.Logger) ReaderOption {
	return func(c *ReaderConfig) {
		if l == nil {
			l = discardLogger()
		}
		c.Logger = l
	}
}

// WriterConfig holds the resolved options for a Writer.
type WriterConfig struct {
	Encoding       string
	EncodingErrors EncodingErrorPolicy
	AutoBalance    bool
	Verbose        bool
	Logger         *log.Logger
}

// DefaultWriterConfig returns the baseline configuration: DefaultDbfEncoding,
// PolicyStrict, auto-balance disabled, verbose, logging discarded (spec.md §6).
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Encoding:       DefaultDbfEncoding,
		EncodingErrors: PolicyStrict,
		AutoBalance:    false,
		Verbose:        true,
		Logger:         discardLogger(),
	}
}

// WriterOption configures a Writer at construction time.
type WriterOption func(*WriterConfig)

// WithWriterEncoding overrides the dbf text codepage used to encode
// Character/Memo values.
func WithWriterEncoding(name string) WriterOption {
	return func(c *WriterConfig) { c.Encoding = name }
}

// WithWriterEncodingErrors selects how unencodable text is handled.
func WithWriterEncodingErrors(policy EncodingErrorPolicy) WriterOption {
	return func(c *WriterConfig) { c.EncodingErrors = policy }
}

// WithAutoBalance toggles automatic emission of Null shapes / blank dbf
// rows so the shp and dbf streams stay record-count aligned after every
// call (spec.md §4.7). Disable it to call Writer.Balance() manually.
func WithAutoBalance(enabled bool) WriterOption {
	return func(c *WriterConfig) { c.AutoBalance = enabled }
}

// WithWriterVerbose enables warning-level diagnostics on the configured
// logger.
func WithWriterVerbose(v bool) WriterOption {
	return func(c *WriterConfig) { c.Verbose = v }
}

// WithWriterLogger installs a custom logger; nil disables logging.
func WithWriterLogger(l *log.Logger) WriterOption {
	return func(c *WriterConfig) {
		if l == nil {
			l = discardLogger()
		}
		c.Logger = l
	}
}
