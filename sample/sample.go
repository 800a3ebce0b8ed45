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

// Package sample decodes the line-delimited JSON written by the
// Telegraf file output into metric samples.
package sample

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valyala/fastjson"
)

// Raw timestamps above this value are nanoseconds, anything at or
// below is seconds.
const nanoThreshold = 1e12

var (
	ErrBlankLine        = errors.New("blank line")
	ErrMissingName      = errors.New("missing `name`")
	ErrMissingTimestamp = errors.New("missing `timestamp`")
)

// Sample is a single decoded metric record. Fields holds only the
// numeric fields of the record.
type Sample struct {
	Name         string
	Tags         map[string]string
	Fields       map[string]float64
	RawTimestamp int64
	Timestamp    float64 // seconds
}

// Field returns the value of the first of names present in the
// sample, and whether any was found.
func (s *Sample) Field(names ...string) (float64, bool) {
	for _, n := range names {
		if v, ok := s.Fields[n]; ok {
			return v, true
		}
	}
	return 0, false
}

// Tag returns the named tag value or "".
func (s *Sample) Tag(name string) string { return s.Tags[name] }

func (s *Sample) String() string {
	return fmt.Sprintf("%s%v %v @%v", s.Name, s.Tags, s.Fields, s.RawTimestamp)
}

// NormalizeTimestamp converts a raw timestamp which can be either in
// seconds or nanoseconds to seconds.
func NormalizeTimestamp(raw int64) float64 {
	if raw > nanoThreshold {
		return float64(raw) / 1e9
	}
	return float64(raw)
}

// Parser decodes lines. The zero value is ready to use. A Parser
// reuses its internal buffers and is not safe for concurrent use.
type Parser struct {
	p fastjson.Parser
}

// Parse decodes a single line. The returned Sample does not reference
// line or the parser buffers.
func (p *Parser) Parse(line string) (*Sample, error) {
	if strings.TrimSpace(line) == "" {
		return nil, ErrBlankLine
	}
	v, err := p.p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("cannot parse json line: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("json line must be an object, got %s", v.Type())
	}

	name := v.GetStringBytes("name")
	if len(name) == 0 {
		return nil, ErrMissingName
	}

	tv := v.Get("timestamp")
	if tv == nil || tv.Type() == fastjson.TypeNull {
		return nil, ErrMissingTimestamp
	}
	raw, err := parseTimestamp(tv)
	if err != nil {
		return nil, err
	}

	s := &Sample{
		Name:         string(name),
		Tags:         make(map[string]string),
		Fields:       make(map[string]float64),
		RawTimestamp: raw,
		Timestamp:    NormalizeTimestamp(raw),
	}

	if o := v.GetObject("tags"); o != nil {
		o.Visit(func(k []byte, tv *fastjson.Value) {
			switch tv.Type() {
			case fastjson.TypeString:
				s.Tags[string(k)] = string(tv.GetStringBytes())
			case fastjson.TypeNull:
			default:
				s.Tags[string(k)] = string(tv.MarshalTo(nil))
			}
		})
	}

	if o := v.GetObject("fields"); o != nil {
		o.Visit(func(k []byte, fv *fastjson.Value) {
			if fv.Type() != fastjson.TypeNumber {
				return
			}
			if f, err := fv.Float64(); err == nil {
				s.Fields[string(k)] = f
			}
		})
	}

	return s, nil
}

func parseTimestamp(v *fastjson.Value) (int64, error) {
	if v.Type() != fastjson.TypeNumber {
		return 0, fmt.Errorf("`timestamp` must be a number, got %s", v.Type())
	}
	if ts, err := v.Int64(); err == nil {
		return ts, nil
	}
	// 1.7e+18 and friends
	f, err := v.Float64()
	if err != nil {
		return 0, fmt.Errorf("cannot unmarshal `timestamp`: %w", err)
	}
	return int64(f), nil
}
