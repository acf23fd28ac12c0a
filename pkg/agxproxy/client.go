// Copyright 2026 The gVisor Authors.
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

package agxproxy

import (
	"context"
	"errors"
	"fmt"

	"gvisor.dev/agxproxy/pkg/abi/agx"
)

// Gateway issues external method calls to the AGX service, e.g. through
// IOConnectCallStructMethod.
type Gateway interface {
	// Call invokes selector with input and writes the reply to output. It
	// returns the number of reply bytes written.
	Call(ctx context.Context, selector uint32, input, output []byte) (int, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, selector uint32, input, output []byte) (int, error)

// Call implements Gateway.Call.
func (f GatewayFunc) Call(ctx context.Context, selector uint32, input, output []byte) (int, error) {
	return f(ctx, selector, input, output)
}

// ErrUnsupportedOperation is returned by Client for selector labels that
// the active revision has no external method for.
var ErrUnsupportedOperation = errors.New("operation not supported by this AGX revision")

// Client issues calls by selector label.
type Client struct {
	gateway    Gateway
	translator *Translator
}

// NewClient returns a Client that sends calls through gateway using the
// selectors of translator.
func NewClient(gateway Gateway, translator *Translator) *Client {
	return &Client{
		gateway:    gateway,
		translator: translator,
	}
}

// Translator returns the Translator used by c.
func (c *Client) Translator() *Translator {
	return c.translator
}

// Call invokes the external method implementing label. The gateway is not
// called if the active revision doesn't implement label.
func (c *Client) Call(ctx context.Context, label agx.SelectorLabel, input, output []byte) (int, error) {
	selector := c.translator.Selector(label)
	if selector == agx.SelectorInvalid {
		return 0, fmt.Errorf("%v on %v: %w", label, c.translator.Revision(), ErrUnsupportedOperation)
	}
	n, err := c.gateway.Call(ctx, selector, input, output)
	if err != nil {
		return n, fmt.Errorf("%v (selector %#x): %w", label, selector, err)
	}
	return n, nil
}

// AllocateResource calls ALLOCATE_MEM with the given request and decodes
// the reply.
func (c *Client) AllocateResource(ctx context.Context, request []byte) (agx.AllocateResourceResp, error) {
	out := make([]byte, SizeofAllocateResourceResp(c.translator.Revision()))
	n, err := c.Call(ctx, agx.SelectorLabelAllocateMem, request, out)
	if err != nil {
		return agx.AllocateResourceResp{}, err
	}
	return c.translator.DecodeAllocateResourceResp(out, n), nil
}

// SubmitCommandBuffers calls SUBMIT_COMMAND_BUFFERS with cmds packed after
// header.
func (c *Client) SubmitCommandBuffers(ctx context.Context, header []byte, cmds []agx.CommandQueueSubmitCommand) error {
	in := make([]byte, 0, len(header)+len(cmds)*agx.SizeofCommandQueueSubmitCommand)
	in = append(in, header...)
	in = agx.AppendSubmitCommands(in, cmds)
	_, err := c.Call(ctx, agx.SelectorLabelSubmitCommandBuffers, in, nil)
	return err
}
