package status

import (
	"fmt"
	"testing"

	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/stretchr/testify/assert"
)

// expected mirrors the precedence rules independently of the
// implementation's check order.
func expected(pending, publishing, published, failed int) string {
	total := pending + publishing + published + failed
	switch {
	case total == 0:
		return models.PostStatusScheduled
	case published == total:
		return models.PostStatusPublished
	case failed > 0 && published > 0:
		return models.PostStatusPublished
	case failed > 0:
		return models.PostStatusFailed
	case publishing > 0:
		return models.PostStatusPublishing
	default:
		return models.PostStatusScheduled
	}
}

func statuses(pending, publishing, published, failed int) []string {
	var out []string
	for i := 0; i < pending; i++ {
		out = append(out, models.TargetStatusPending)
	}
	for i := 0; i < publishing; i++ {
		out = append(out, models.TargetStatusPublishing)
	}
	for i := 0; i < published; i++ {
		out = append(out, models.TargetStatusPublished)
	}
	for i := 0; i < failed; i++ {
		out = append(out, models.TargetStatusFailed)
	}
	return out
}

// Exhaustive over every multiset of up to four targets, plus the empty set.
func TestAggregateAllCombinations(t *testing.T) {
	const max = 4
	for pending := 0; pending <= max; pending++ {
		for publishing := 0; publishing <= max; publishing++ {
			for published := 0; published <= max; published++ {
				for failed := 0; failed <= max; failed++ {
					name := fmt.Sprintf("pending=%d_publishing=%d_published=%d_failed=%d", pending, publishing, published, failed)
					t.Run(name, func(t *testing.T) {
						got := Aggregate(statuses(pending, publishing, published, failed))
						assert.Equal(t, expected(pending, publishing, published, failed), got)
					})
				}
			}
		}
	}
}

func TestAggregateEdgeCases(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want string
	}{
		{"empty", nil, models.PostStatusScheduled},
		{"single pending", []string{models.TargetStatusPending}, models.PostStatusScheduled},
		{"single published", []string{models.TargetStatusPublished}, models.PostStatusPublished},
		{"single failed", []string{models.TargetStatusFailed}, models.PostStatusFailed},
		{
			"partial success dominates failure",
			[]string{models.TargetStatusPublished, models.TargetStatusFailed, models.TargetStatusFailed},
			models.PostStatusPublished,
		},
		{
			"failure with in-flight sibling still fails",
			[]string{models.TargetStatusFailed, models.TargetStatusPublishing},
			models.PostStatusFailed,
		},
		{
			"in-flight without failures is publishing",
			[]string{models.TargetStatusPending, models.TargetStatusPublishing, models.TargetStatusPublished},
			models.PostStatusPublishing,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Aggregate(tc.in))
		})
	}
}
