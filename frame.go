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

import "encoding/json"

// RPCResponseType is the reserved frame type for RPC replies. It must not
// collide with any user route; the flattener rejects it as a route segment.
const RPCResponseType = "__rpc_res"

// inboundFrame is the wire shape of a client frame.
//
// Type is the dotted route path. Payload stays raw until the procedure's
// schema decodes it. RPCID is present iff the client expects a reply.
type inboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	RPCID   string          `json:"rpcId,omitempty"`
}

// outboundFrame is the wire shape of a server frame: an event
// {type, payload} or an RPC reply {type: "__rpc_res", payload, rpcId}.
type outboundFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	RPCID   string `json:"rpcId,omitempty"`
}

// encodeFrame marshals an outbound frame. Payload encoding failures are the
// caller's bug (unencodable handler return values); they are reported, not
// sent.
func encodeFrame(route string, payload any, rpcID string) ([]byte, error) {
	return json.Marshal(outboundFrame{Type: route, Payload: payload, RPCID: rpcID})
}

// decodeFrame parses a raw inbound frame. A missing or empty type field is a
// malformed frame even when the JSON itself is well-formed.
func decodeFrame(data []byte) (inboundFrame, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return inboundFrame{}, err
	}
	if f.Type == "" {
		return inboundFrame{}, errFrameMissingType
	}
	return f, nil
}
