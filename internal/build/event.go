package build

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// Event is the part of a CodeBuild "Build State Change" notification the
// processor needs.
type Event struct {
	BuildID     string `json:"build-id"`
	ProjectName string `json:"project-name"`
	BuildStatus string `json:"build-status"`
}

// ParseEvent extracts the build fields from the event detail
func ParseEvent(ev events.CloudWatchEvent) (Event, error) {
	var e Event
	if len(ev.Detail) == 0 {
		return e, fmt.Errorf("%w: empty detail", ErrInvalidEvent)
	}
	if err := json.Unmarshal(ev.Detail, &e); err != nil {
		return e, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if e.BuildID == "" {
		return e, fmt.Errorf("%w: missing build-id", ErrInvalidEvent)
	}
	return e, nil
}
