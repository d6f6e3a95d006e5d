// Copyright 2025 The Zocket Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package zocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	t.Parallel()

	f, err := decodeFrame([]byte(`{"type":"chat.send","payload":{"text":"hi"},"rpcId":"r1"}`))
	require.NoError(t, err)
	assert.Equal(t, "chat.send", f.Type)
	assert.Equal(t, "r1", f.RPCID)
	assert.JSONEq(t, `{"text":"hi"}`, string(f.Payload))
}

func TestDecodeFrameWithoutType(t *testing.T) {
	t.Parallel()

	_, err := decodeFrame([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, errFrameMissingType)

	_, err = decodeFrame([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeFrameOmitsEmptyRPCID(t *testing.T) {
	t.Parallel()

	data, err := encodeFrame("news.onTick", 1, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"news.onTick","payload":1}`, string(data))

	data, err = encodeFrame(RPCResponseType, "ok", "r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"__rpc_res","payload":"ok","rpcId":"r1"}`, string(data))
}
