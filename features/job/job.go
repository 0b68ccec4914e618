package job

import (
	"encoding/json"
	"time"
)

// HandlerCleanBatch marks jobs dead-lettered by the comments.raw consumer.
const HandlerCleanBatch = "clean_batch"

// Job is a message that exhausted its delivery attempts. Payload is the original
// message body so a retry can republish it unchanged.
type Job struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Handler   string          `json:"handler"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}
