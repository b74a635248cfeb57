/*
 * Copyright 2022 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tracera

import (
    `github.com/cloudwego/tracera/internal/lsra`
)

// OutOfRegistersError occures when an instruction needs more registers at the
// same time than the target provides. Dump describes every interval of the
// trace at the time of the failure.
type OutOfRegistersError = lsra.OutOfRegistersError

// VerificationError occures when the verifier finds a value that is not in
// the location the allocator assigned to it. It is only reported when the
// allocator runs with WithVerify(true).
type VerificationError = lsra.VerificationError
