// Copyright 2022 CloudWeGo Authors
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

package fuzz

import (
	"log"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"testing"

	"github.com/bytedance/gopkg/util/gctuner"
	"github.com/cloudwego/tracera"
	"github.com/cloudwego/tracera/arch"
	"github.com/cloudwego/tracera/tests"
)

const (
	FuzzLogEnv            = "FuzzLog"
	MemoryLimitEnv        = "MemLimit"
	KB             uint64 = 1024
	MB             uint64 = 1024 * KB
	GB             uint64 = 1024 * MB
)

func init() {
	if name := os.Getenv(FuzzLogEnv); name != "" {
		file, _ := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		log.SetOutput(file)
	}
}

func tuneMemory() {
	var limit uint64 = 4 * GB
	if os.Getenv(MemoryLimitEnv) != "" {
		if memGB, err := strconv.ParseUint(os.Getenv(MemoryLimitEnv), 10, 64); err == nil {
			limit = memGB * GB
		}
	}
	threshold := uint64(float64(limit) * 0.7)
	numWorker := uint64(runtime.GOMAXPROCS(0))
	gctuner.Tuning(threshold / numWorker)
	log.Printf("[%d] Memory Limit: %d GB, Memory Threshold: %d MB\n", os.Getpid(), limit/GB, threshold/MB)
}

func FuzzAllocate(f *testing.F) {
	tuneMemory()
	f.Add(int64(0), uint8(3), uint8(0), uint8(2))
	f.Add(int64(42), uint8(2), uint8(3), uint8(1))
	f.Add(int64(7), uint8(6), uint8(4), uint8(3))
	f.Fuzz(func(t *testing.T, seed int64, nint uint8, nfloat uint8, depth uint8) {
		pc := tests.ProgramConfig{
			Floats:   nfloat >= 3,
			Length:   6,
			MaxDepth: int(depth % 4),
		}

		// two-operand instructions with two live inputs need three registers
		cfg := arch.Synthetic(3+int(nint%6), 3+int(nfloat%4))
		want, err := tests.Execute(tests.GenProgram(seed, pc), nil)
		if err != nil {
			t.Fatal(err)
		}

		p := tests.GenProgram(seed, pc)
		if _, err = tracera.Allocate(p, cfg, tracera.WithVerify(true)); err != nil {
			log.Printf("seed=%d config=%s\n%s", seed, cfg, tests.GenProgram(seed, pc))
			t.Fatal(err)
		}

		got, err := tests.Execute(p, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(want, got) {
			log.Printf("seed=%d config=%s\n%s", seed, cfg, p)
			t.Fatalf("behavior changed: want %v, got %v", want, got)
		}
	})
}
