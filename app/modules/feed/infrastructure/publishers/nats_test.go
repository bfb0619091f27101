package feedpublishers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	feeddomain "github.com/Black-And-White-Club/keyquest/app/modules/feed/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestNATSPublisher_Notify(t *testing.T) {
	conn := &fakeConn{}
	runID := uuid.New()

	err := NewNATSPublisher(conn).Notify(context.Background(), feeddomain.Event{
		RunID: runID,
		Kind:  feeddomain.EventMasterKeyValidated,
		Score: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{feeddomain.RunTopic(runID), feeddomain.LeaderboardTopic}, conn.subjects)

	var decoded feeddomain.Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.Equal(t, runID, decoded.RunID)
	assert.Equal(t, 100, decoded.Score)
}

func TestNATSPublisher_NotifyError(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	err := NewNATSPublisher(conn).Notify(context.Background(), feeddomain.Event{RunID: uuid.New()})
	assert.ErrorContains(t, err, "connection closed")
}
