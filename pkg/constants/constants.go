// Package constants provides shared constants used throughout the fillmap codebase.
// This includes confidence thresholds, page units, timeouts, limits and file
// permissions that should be consistent across the application.
package constants

import "time"

// Confidence tier thresholds. Boundaries are inclusive on the upper tier.
const (
	// HighConfidence is the lowest score presented as a high-confidence value
	HighConfidence = 0.8

	// MidConfidence is the lowest score presented as a mid-confidence value
	MidConfidence = 0.5
)

// Page geometry
const (
	// PointsPerInch converts bounding-box inches to rendered page points
	PointsPerInch = 72.0

	// LetterWidthPoints is the width of an 8.5x11 inch page
	LetterWidthPoints = 612.0

	// LetterHeightPoints is the height of an 8.5x11 inch page
	LetterHeightPoints = 792.0
)

// Timeout constants define various timeout durations used in the application
const (
	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 2 * time.Minute

	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout = 30 * time.Second

	// ReadTimeout is the HTTP server read timeout
	ReadTimeout = 10 * time.Second

	// WriteTimeout is the HTTP server write timeout
	WriteTimeout = 10 * time.Second

	// IdleTimeout is the HTTP server idle timeout
	IdleTimeout = 60 * time.Second

	// WebSocketWriteWait is the time allowed to write a frame to a peer
	WebSocketWriteWait = 10 * time.Second

	// WebSocketPongWait is the time allowed to read the next pong from a peer
	WebSocketPongWait = 60 * time.Second

	// WebSocketPingPeriod must be less than WebSocketPongWait
	WebSocketPingPeriod = (WebSocketPongWait * 9) / 10

	// SSEHeartbeat is the interval between SSE keep-alive comments
	SSEHeartbeat = 30 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// ChannelBufferSize is the default buffer size for channels
	ChannelBufferSize = 256

	// WindowInboxSize is the buffer of a window's message inbox
	WindowInboxSize = 16

	// DefaultGridRows is the initial number of materialized grid rows
	DefaultGridRows = 50

	// DefaultGridCols is the initial number of materialized grid columns
	DefaultGridCols = 26

	// MaxProjectedCells caps the cells of one explicitly requested grid range
	MaxProjectedCells = 100_000

	// DefaultPageBatch is how many pages a viewer loads per LoadMorePages call
	DefaultPageBatch = 5

	// MaxRequestBody caps JSON request bodies in bytes
	MaxRequestBody = 1 << 20

	// MaxWebSocketMessage caps inbound WebSocket frames in bytes
	MaxWebSocketMessage = 4096
)

// Cache constants
const (
	// WorkbookCacheTTL is the default time-to-live for opened workbooks
	WorkbookCacheTTL = 15 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 5 * time.Minute
)
