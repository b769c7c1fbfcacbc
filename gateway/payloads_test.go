package gateway

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-core/errors"
)

func Test_DecodeEnvelope(t *testing.T) {
	req := require.New(t)

	var env envelope
	err := decodeEnvelope([]byte(`{"event":"send-message","data":{"content":"hi"}}`), &env)
	req.NoError(err)
	req.Equal("send-message", env.Event)

	err = decodeEnvelope([]byte(`not json`), &env)
	req.ErrorIs(err, errors.ErrBadRequest)

	env = envelope{}
	err = decodeEnvelope([]byte(`{"data":{}}`), &env)
	req.ErrorIs(err, errors.ErrBadRequest)
}

func Test_DecodePayload_Validation(t *testing.T) {
	convID := uuid.NewString()
	msgID := uuid.NewString()

	cases := []struct {
		name    string
		data    string
		target  func() any
		wantErr bool
	}{
		{
			name:   "send message minimal",
			data:   `{"conversationId":"` + convID + `","content":"hello"}`,
			target: func() any { return &sendMessagePayload{} },
		},
		{
			name:    "send message missing content",
			data:    `{"conversationId":"` + convID + `"}`,
			target:  func() any { return &sendMessagePayload{} },
			wantErr: true,
		},
		{
			name:    "send message bad conversation id",
			data:    `{"conversationId":"nope","content":"hello"}`,
			target:  func() any { return &sendMessagePayload{} },
			wantErr: true,
		},
		{
			name:    "send message unknown type",
			data:    `{"conversationId":"` + convID + `","content":"x","type":"hologram"}`,
			target:  func() any { return &sendMessagePayload{} },
			wantErr: true,
		},
		{
			name:   "get messages with window",
			data:   `{"conversationId":"` + convID + `","page":2,"limit":25}`,
			target: func() any { return &getMessagesPayload{} },
		},
		{
			name:    "get messages negative page",
			data:    `{"conversationId":"` + convID + `","page":-1}`,
			target:  func() any { return &getMessagesPayload{} },
			wantErr: true,
		},
		{
			name:   "delete message for me",
			data:   `{"messageId":"` + msgID + `","deleteType":"forMe"}`,
			target: func() any { return &deleteMessagePayload{} },
		},
		{
			name:    "delete message unknown type",
			data:    `{"messageId":"` + msgID + `","deleteType":"forever"}`,
			target:  func() any { return &deleteMessagePayload{} },
			wantErr: true,
		},
		{
			name:   "start conversation",
			data:   `{"toUserId":"bob"}`,
			target: func() any { return &startConversationPayload{} },
		},
		{
			name:    "start conversation empty target",
			data:    `{"toUserId":""}`,
			target:  func() any { return &startConversationPayload{} },
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := decodePayload(json.RawMessage(tc.data), tc.target())
			if tc.wantErr {
				require.ErrorIs(t, err, errors.ErrBadRequest)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_DecodePayload_Missing_And_Malformed(t *testing.T) {
	req := require.New(t)

	var p markAsReadPayload
	req.ErrorIs(decodePayload(nil, &p), errors.ErrBadRequest)
	req.ErrorIs(decodePayload(json.RawMessage(`{broken`), &p), errors.ErrBadRequest)
}
