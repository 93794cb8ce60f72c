// Copyright 2026 Google LLC
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

package metrics

import (
	"context"
	"time"
)

// Constants for attribute FsErrorCategory
const (
	FsErrorCategoryDEVICEERROR              = "DEVICE_ERROR"
	FsErrorCategoryDIRNOTEMPTY              = "DIR_NOT_EMPTY"
	FsErrorCategoryFILEDIRERROR             = "FILE_DIR_ERROR"
	FsErrorCategoryFILEEXISTS               = "FILE_EXISTS"
	FsErrorCategoryINTERRUPTERROR           = "INTERRUPT_ERROR"
	FsErrorCategoryINVALIDARGUMENT          = "INVALID_ARGUMENT"
	FsErrorCategoryINVALIDOPERATION         = "INVALID_OPERATION"
	FsErrorCategoryIOERROR                  = "IO_ERROR"
	FsErrorCategoryMISCERROR                = "MISC_ERROR"
	FsErrorCategoryNOFILEORDIR              = "NO_FILE_OR_DIR"
	FsErrorCategoryNOTADIR                  = "NOT_A_DIR"
	FsErrorCategoryNOTIMPLEMENTED           = "NOT_IMPLEMENTED"
	FsErrorCategoryPERMERROR                = "PERM_ERROR"
	FsErrorCategoryPROCESSRESOURCEMGMTERROR = "PROCESS_RESOURCE_MGMT_ERROR"
	FsErrorCategoryTOOMANYOPENFILES         = "TOO_MANY_OPEN_FILES"
)

// Constants for attribute FsOp
const (
	FsOpBatchForget        = "BatchForget"
	FsOpCreateLink         = "CreateLink"
	FsOpCreateSymlink      = "CreateSymlink"
	FsOpFlushFile          = "FlushFile"
	FsOpForgetInode        = "ForgetInode"
	FsOpGetInodeAttributes = "GetInodeAttributes"
	FsOpGetXattr           = "GetXattr"
	FsOpListXattr          = "ListXattr"
	FsOpLookUpInode        = "LookUpInode"
	FsOpMkDir              = "MkDir"
	FsOpMkNode             = "MkNode"
	FsOpOpenDir            = "OpenDir"
	FsOpOpenFile           = "OpenFile"
	FsOpOthers             = "Others"
	FsOpReadDir            = "ReadDir"
	FsOpReadFile           = "ReadFile"
	FsOpReadSymlink        = "ReadSymlink"
	FsOpReleaseDirHandle   = "ReleaseDirHandle"
	FsOpReleaseFileHandle  = "ReleaseFileHandle"
	FsOpRemoveXattr        = "RemoveXattr"
	FsOpRename             = "Rename"
	FsOpRmDir              = "RmDir"
	FsOpSetInodeAttributes = "SetInodeAttributes"
	FsOpSetXattr           = "SetXattr"
	FsOpSyncFile           = "SyncFile"
	FsOpUnlink             = "Unlink"
	FsOpWriteFile          = "WriteFile"
)

// MetricHandle provides an interface for recording metrics.
type MetricHandle interface {
	// FsOpsCount - The cumulative number of ops processed by the file system.
	FsOpsCount(inc int64, fsOp string)

	// FsOpsErrorCount - The cumulative number of errors generated by file system operations.
	FsOpsErrorCount(inc int64, fsErrorCategory string, fsOp string)

	// FsOpsLatency - The cumulative distribution of file system operation latencies.
	FsOpsLatency(ctx context.Context, duration time.Duration, fsOp string)

	// HandlerPanicCount - The cumulative number of handler callbacks that panicked, by handler operation.
	HandlerPanicCount(inc int64, handlerOp string)

	// HandlerUnclassifiedErrorCount - The cumulative number of handler failures that carried no errno and were answered with the default code.
	HandlerUnclassifiedErrorCount(inc int64, handlerOp string)
}
