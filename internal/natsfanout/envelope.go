package natsfanout

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type remoteEnvelope struct {
	OriginDeviceID uuid.UUID `json:"origin_device_id"`
	Payload        []byte    `json:"payload"`
	SourceInstance string    `json:"source_instance"`
}

func encodeEnvelope(e remoteEnvelope) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEnvelope(data []byte) (remoteEnvelope, error) {
	var e remoteEnvelope
	err := json.Unmarshal(data, &e)
	return e, err
}

func userIDFromSubject(subject string) (uuid.UUID, error) {
	idStr := strings.TrimPrefix(subject, subjectPrefix)
	if idStr == subject {
		return uuid.UUID{}, fmt.Errorf("subject %q missing prefix %q", subject, subjectPrefix)
	}
	return uuid.Parse(idStr)
}
