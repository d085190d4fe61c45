// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package assistants

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Debug metric names extracted from an assistant message.
const (
	MetricToolCalls           = "tool_calls"
	MetricSearchResults       = "search_results"
	MetricChunksInFinalPrompt = "chunks_in_final_prompt"
	MetricSearchTime          = "search_time"
	MetricCrawlTime           = "crawl_time"
	MetricCleanTime           = "clean_time"
	MetricToolTime            = "tool_time"
	MetricReferences          = "references"
	MetricHallucinationLevel  = "hallucination_level"
	MetricHallucinationReason = "hallucination_reason"
	MetricRaw                 = "raw"
)

// ExtractDebugInfo summarizes the raw debugInfo and assessment documents of an
// assistant message into flat named metrics. Unknown or missing fields are skipped.
func ExtractDebugInfo(debugInfo json.RawMessage, assessment json.RawMessage, references int) map[string]any {
	metrics := map[string]any{
		MetricReferences: references,
	}

	if info := gjson.ParseBytes(debugInfo); info.IsObject() {
		tools := info.Get("tools")
		if tools.IsArray() {
			metrics[MetricToolCalls] = len(tools.Array())
			metrics[MetricSearchResults] = sumInt(tools, "search_results.#")
			metrics[MetricChunksInFinalPrompt] = sumInt(tools, "num chunks in final prompts")
			metrics[MetricSearchTime] = sumFloat(tools, "time_info.search_time")
			metrics[MetricCrawlTime] = sumFloat(tools, "time_info.crawl_time")
			metrics[MetricCleanTime] = sumFloat(tools, "time_info.clean_time")
			metrics[MetricToolTime] = sumFloat(tools, "time_info.total_time")
		}
		metrics[MetricRaw] = json.RawMessage(info.Raw)
	}

	if first := gjson.GetBytes(assessment, "0"); first.Exists() {
		if label := first.Get("label"); label.Exists() {
			metrics[MetricHallucinationLevel] = label.String()
		}
		if explanation := first.Get("explanation"); explanation.Exists() {
			metrics[MetricHallucinationReason] = explanation.String()
		}
	}

	return metrics
}

func sumInt(tools gjson.Result, path string) (total int64) {
	tools.ForEach(func(_, tool gjson.Result) bool {
		total += tool.Get(path).Int()
		return true
	})
	return
}

func sumFloat(tools gjson.Result, path string) (total float64) {
	tools.ForEach(func(_, tool gjson.Result) bool {
		total += tool.Get(path).Float()
		return true
	})
	return
}
