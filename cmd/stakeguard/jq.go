package main

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// compileJQ parses and compiles a jq expression.
func compileJQ(expr string) (*gojq.Code, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
	}
	return code, nil
}

// toJQValue converts a Go value into the plain maps and slices gojq runs on.
func toJQValue(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// runJQ returns every value the filter emits for v.
func runJQ(code *gojq.Code, v interface{}) ([]interface{}, error) {
	input, err := toJQValue(v)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare jq input: %w", err)
	}

	var results []interface{}
	iter := code.Run(input)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := r.(error); isErr {
			return nil, fmt.Errorf("jq filter error: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

// mustMatch returns an error unless every filter's first result is truthy.
func mustMatch(exprs []string, v interface{}) error {
	for _, expr := range exprs {
		code, err := compileJQ(expr)
		if err != nil {
			return err
		}
		results, err := runJQ(code, v)
		if err != nil {
			return err
		}
		if len(results) == 0 || !isTruthy(results[0]) {
			return fmt.Errorf("jq filter %q did not match", expr)
		}
	}
	return nil
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}
