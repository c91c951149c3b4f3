// Package vtime is a virtual-time scheduler for testing push streams.
//
// Time is an int64 tick counter that only advances when the scheduler runs
// the next queued action. Hot and cold test sources emit recorded
// notifications at fixed ticks and record the interval of every subscription
// they receive; a test Observer records what it was sent and when.
//
//	s := vtime.NewScheduler()
//	xs := vtime.CreateHot(s,
//	    vtime.OnNext(210, 3),
//	    vtime.OnCompleted[int](250),
//	)
//	res := vtime.Start(s, func() push.Observable[int] { return xs })
//	// res.Messages(), xs.Subscriptions()
//
// Start follows the usual conventions: the observable is created at 100,
// subscribed at 200 and disposed at 1000.
package vtime
