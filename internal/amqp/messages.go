package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"savvy/internal/records"
)

type RecordKind string

type RecordOp string

const (
	KindTransaction RecordKind = "transaction"
	KindGoal        RecordKind = "goal"

	OpCreated RecordOp = "created"
	OpUpdated RecordOp = "updated"
	OpDeleted RecordOp = "deleted"
)

// RecordEvent announces a successful record store mutation. Created and
// updated events carry the stored row; deleted events carry only the ID.
type RecordEvent struct {
	EventID     string                  `json:"event_id"`
	Kind        RecordKind              `json:"kind"`
	Op          RecordOp                `json:"op"`
	OwnerID     string                  `json:"owner_id"`
	ID          string                  `json:"id"`
	Timestamp   time.Time               `json:"timestamp"`
	Transaction *records.TransactionRow `json:"transaction,omitempty"`
	Goal        *records.GoalRow        `json:"goal,omitempty"`
}

func NewRecordEvent(kind RecordKind, op RecordOp, owner, id string) *RecordEvent {
	return &RecordEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		Op:        op,
		OwnerID:   owner,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes and checks an event body.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindTransaction, KindGoal:
	default:
		return nil, fmt.Errorf("unknown record kind %q", e.Kind)
	}
	switch e.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return nil, fmt.Errorf("unknown record op %q", e.Op)
	}
	if e.ID == "" || e.OwnerID == "" {
		return nil, fmt.Errorf("record event missing id or owner")
	}
	return &e, nil
}
