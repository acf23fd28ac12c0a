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

import (
	"encoding/binary"
	"fmt"
)

// ByteOrder is the byte order of every AGX host. The service only exists on
// Apple silicon (arm64).
var ByteOrder = binary.LittleEndian

// AllocateResourceResp is the revision independent view of an
// ALLOCATE_MEM reply.
type AllocateResourceResp struct {
	// GPUVA is the GPU virtual address of the resource.
	GPUVA uint64

	// CPU is the CPU virtual address the resource is mapped at.
	CPU uint64

	// Handle identifies the resource in the segment list.
	Handle uint32

	// SubSize is the maximum size of the suballocation. For root
	// allocations it equals the size of the allocation.
	SubSize uint64
}

// String implements fmt.Stringer.String.
func (r AllocateResourceResp) String() string {
	return fmt.Sprintf("{gpu_va:%#x, cpu:%#x, handle:%d, sub_size:%d}", r.GPUVA, r.CPU, r.Handle, r.SubSize)
}

// AllocateResourceRespV13 is the packed ALLOCATE_MEM reply on macOS 13
// through 15.
type AllocateResourceRespV13 struct {
	GPUVA    uint64
	CPU      uint64
	Unk4     [3]uint32
	Handle   uint32
	RootSize uint64
	GUID     uint32
	Unk11    [7]uint32

	// SubSize is the maximum size of the suballocation. For a
	// suballocation, this equals:
	//
	//	SubSize = RootSize - (subCPU - rootCPU)
	//
	// For root allocations, this equals the size.
	SubSize uint64
}

// AllocateResourceRespV26 is the packed ALLOCATE_MEM reply on macOS 26.
type AllocateResourceRespV26 struct {
	Unk0 [2]uint32

	// CPU is the returned CPU virtual address.
	CPU uint64

	// GPUVA is the returned GPU virtual address.
	GPUVA uint64

	Unk4 [3]uint32

	// Handle identifies the resource in the segment list.
	Handle uint32

	// RootSize is the size of the root resource this one is allocated
	// from. If this is not a suballocation, it equals the size.
	RootSize uint64

	// GUID is the globally unique identifier shown in Instruments.
	GUID uint32

	Unk11 [7]uint32

	// UnkSize occupies the position of SubSize in the v13 layout and is
	// consumed as such. It might not correspond to it exactly.
	UnkSize uint64
}

// Sizes of the packed reply structs.
var (
	SizeofAllocateResourceRespV13 = binary.Size(AllocateResourceRespV13{})
	SizeofAllocateResourceRespV26 = binary.Size(AllocateResourceRespV26{})
)

// Canonical projects the v13 reply onto AllocateResourceResp.
func (r *AllocateResourceRespV13) Canonical() AllocateResourceResp {
	return AllocateResourceResp{
		GPUVA:   r.GPUVA,
		CPU:     r.CPU,
		Handle:  r.Handle,
		SubSize: r.SubSize,
	}
}

// Canonical projects the v26 reply onto AllocateResourceResp.
func (r *AllocateResourceRespV26) Canonical() AllocateResourceResp {
	return AllocateResourceResp{
		GPUVA:   r.GPUVA,
		CPU:     r.CPU,
		Handle:  r.Handle,
		SubSize: r.UnkSize,
	}
}
