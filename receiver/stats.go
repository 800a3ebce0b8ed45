//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
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

package receiver

import (
	"github.com/VictoriaMetrics/metrics"
)

var (
	linesTotal          = metrics.NewCounter(`telesink_lines_total`)
	parseErrorsTotal    = metrics.NewCounter(`telesink_parse_errors_total`)
	scansTotal          = metrics.NewCounter(`telesink_scans_total`)
	rowsWrittenTotal    = metrics.NewCounter(`telesink_rows_written_total`)
	rowsIncompleteTotal = metrics.NewCounter(`telesink_rows_incomplete_total`)
	rowsExpiredTotal    = metrics.NewCounter(`telesink_rows_expired_total`)
	insertErrorsTotal   = metrics.NewCounter(`telesink_insert_errors_total`)
	rateClampedTotal    = metrics.NewCounter(`telesink_rate_clamped_total`)

	insertDuration = metrics.NewSummary(`telesink_insert_duration_seconds`)
	bufferedRows   = metrics.NewGauge(`telesink_buffered_rows`, nil)
)
