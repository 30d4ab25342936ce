package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AssessmentRulesKey returns the cache key for an assessment's rules
func (r *CacheKeyStruct) AssessmentRulesKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:rules", assessmentID)
}

// AssessmentQuestionsKey returns the cache key for an assessment's question set, answer key included
func (r *CacheKeyStruct) AssessmentQuestionsKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:questions", assessmentID)
}

// ShareCodeKey returns the cache key resolving a public share code to an assessment id
func (r *CacheKeyStruct) ShareCodeKey(shareCode string) string {
	return fmt.Sprintf("share:%s:assessment", shareCode)
}

// AssessmentMonitorChannel returns the Redis PubSub channel name for an assessment monitor
func (r *CacheKeyStruct) AssessmentMonitorChannel(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:monitor", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
