package id

import (
	"fmt"

	foxuuid "github.com/fox-one/pkg/uuid"
	"github.com/gofrs/uuid"
)

// GenTraceID new normal traceID
func GenTraceID() string {
	return GenUUIDString()
}

// GenUUIDString new uuid
func GenUUIDString() string {
	return uuid.Must(uuid.NewV4()).String()
}

// EventID id of the seq-th event emitted under traceID, stable for a given
// trace
func EventID(traceID string, seq int) string {
	return foxuuid.Modify(traceID, fmt.Sprintf("event:%d", seq))
}
