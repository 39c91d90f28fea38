// Copyright 2019 Dolthub, Inc.
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

package build

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/endgegnerbert-tech/cxp/manifest"
)

// Report summarizes one completed Build call: how long it took and the
// final Manifest stats. It carries no information not already in the
// sealed archive's Manifest — it exists purely for operator-facing
// output.
type Report struct {
	Duration time.Duration
	Manifest *manifest.Manifest
}

// String renders a one-line, human-readable summary of the build,
// suitable for a CLI collaborator to print directly.
func (r *Report) String() string {
	s := r.Manifest.Stats
	return fmt.Sprintf(
		"packed %d files (%s -> %s, %s saved, %d unique chunks) in %s",
		s.FileCount,
		humanize.Bytes(s.TotalOriginalBytes),
		humanize.Bytes(s.TotalPackedBytes),
		humanize.CommafWithDigits(s.DedupSavingsPercent, 1)+"%",
		s.UniqueChunkCount,
		r.Duration.Round(time.Millisecond),
	)
}
