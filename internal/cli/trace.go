package cli

import (
	"context"
	"fmt"

	"github.com/sarchlab/devskit/datarecording"
)

// TraceOptions selects messages from a recorded trace. An empty Path reads
// the trace configured for the session.
type TraceOptions struct {
	Path  string
	Query datarecording.TraceQuery
}

// Trace is one page of a message trace.
type Trace struct {
	Path     string                        `json:"path"`
	Total    int                           `json:"total"`
	Messages []datarecording.MessageRecord `json:"messages"`
}

// ReadTrace reads the messages a traced run recorded.
func (s *Session) ReadTrace(ctx context.Context, opts TraceOptions) (*Trace, error) {
	path := opts.Path
	if path == "" {
		path = s.Config.Trace.Path + ".sqlite3"
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	messages, total, err := datarecording.ReadMessages(
		ctx, reader, traceTable, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("reading trace %s: %w", path, err)
	}

	s.Logger.WithField("path", path).
		WithField("total", total).
		Debug("trace read")

	return &Trace{Path: path, Total: total, Messages: messages}, nil
}
