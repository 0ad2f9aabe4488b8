package cache

import "fmt"

// Kind identifies which endpoint produced a cached list.
type Kind string

const (
	KindTop     Kind = "top"
	KindSimilar Kind = "similar"
	KindPopular Kind = "popular"
)

const keyNamespace = "recommendations"

// RootPrefix matches every cached recommendation list.
const RootPrefix = keyNamespace + ":"

// TopKey is the key for a user's top recommendations at a given limit.
func TopKey(userID, limit int) string {
	return fmt.Sprintf("%s:%s:%d:%d", keyNamespace, KindTop, userID, limit)
}

// TopPrefix matches every cached top list of a user, whatever the limit.
func TopPrefix(userID int) string {
	return fmt.Sprintf("%s:%s:%d:", keyNamespace, KindTop, userID)
}

func SimilarKey(movieID, limit int) string {
	return fmt.Sprintf("%s:%s:%d:%d", keyNamespace, KindSimilar, movieID, limit)
}

func SimilarPrefix(movieID int) string {
	return fmt.Sprintf("%s:%s:%d:", keyNamespace, KindSimilar, movieID)
}

func PopularKey(limit int) string {
	return fmt.Sprintf("%s:%s:%d", keyNamespace, KindPopular, limit)
}

func PopularPrefix() string {
	return fmt.Sprintf("%s:%s:", keyNamespace, KindPopular)
}
