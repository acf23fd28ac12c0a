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

package agx

import "encoding/binary"

// CommandQueueSubmitCommand describes one command buffer passed to
// SUBMIT_COMMAND_BUFFERS.
type CommandQueueSubmitCommand struct {
	CommandBufferShmemID uint32
	SegmentListShmemID   uint32
	Unk1B                uint64 // 0, new in 12.x
	Notify1              uint64
	Notify2              uint64
	Unk2                 uint32
	Unk3                 uint32
}

// SizeofCommandQueueSubmitCommand is the packed size of
// CommandQueueSubmitCommand.
var SizeofCommandQueueSubmitCommand = binary.Size(CommandQueueSubmitCommand{})

// AppendSubmitCommands appends the packed encoding of cmds to buf.
func AppendSubmitCommands(buf []byte, cmds []CommandQueueSubmitCommand) []byte {
	for i := range cmds {
		c := &cmds[i]
		buf = ByteOrder.AppendUint32(buf, c.CommandBufferShmemID)
		buf = ByteOrder.AppendUint32(buf, c.SegmentListShmemID)
		buf = ByteOrder.AppendUint64(buf, c.Unk1B)
		buf = ByteOrder.AppendUint64(buf, c.Notify1)
		buf = ByteOrder.AppendUint64(buf, c.Notify2)
		buf = ByteOrder.AppendUint32(buf, c.Unk2)
		buf = ByteOrder.AppendUint32(buf, c.Unk3)
	}
	return buf
}
