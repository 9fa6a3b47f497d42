package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ApplicationMetrics tracks domain counters: relationship edges,
// engagement records, posts, poll votes.
type ApplicationMetrics struct {
	FollowsTotal   prometheus.CounterVec
	UnfollowsTotal prometheus.CounterVec
	BlocksTotal    prometheus.CounterVec
	MutesTotal     prometheus.CounterVec

	LikesTotal     prometheus.CounterVec
	RepostsTotal   prometheus.CounterVec
	BookmarksTotal prometheus.CounterVec

	PostsCreated   prometheus.CounterVec
	PollVotesTotal prometheus.CounterVec

	ValidationFailures prometheus.CounterVec
}

var (
	appInstance *ApplicationMetrics
	appOnce     sync.Once
)

// App returns the global application metrics instance, registering the
// collectors on first use.
func App() *ApplicationMetrics {
	appOnce.Do(func() {
		appInstance = &ApplicationMetrics{
			FollowsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "follows_total",
					Help: "Total number of follows",
				},
				[]string{},
			),
			UnfollowsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "unfollows_total",
					Help: "Total number of unfollows",
				},
				[]string{},
			),
			BlocksTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "blocks_total",
					Help: "Total number of blocks",
				},
				[]string{},
			),
			MutesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mutes_total",
					Help: "Total number of mutes",
				},
				[]string{},
			),

			LikesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "likes_total",
					Help: "Total number of likes",
				},
				[]string{},
			),
			RepostsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reposts_total",
					Help: "Total number of reposts",
				},
				[]string{},
			),
			BookmarksTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "bookmarks_total",
					Help: "Total number of bookmarks",
				},
				[]string{},
			),

			PostsCreated: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "posts_created_total",
					Help: "Total number of posts created",
				},
				[]string{"kind", "visibility"},
			),
			PollVotesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "poll_votes_total",
					Help: "Total number of poll votes recorded",
				},
				[]string{},
			),

			ValidationFailures: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "validation_failures_total",
					Help: "Total validation failures",
				},
				[]string{"field"},
			),
		}
	})
	return appInstance
}
