package postgres_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"godcb/pkg/dcb"
	dcbpostgres "godcb/pkg/dcb/postgres"
)

// concurrent appenders both racing against the same AppendCondition must
// see exactly one winner: the table-level EXCLUSIVE MODE lock serializes
// them, so the loser observes the winner's event and is rejected with an
// IntegrityError rather than a database-level serialization failure.
var _ = Describe("concurrent appends under a shared condition", func() {
	It("lets exactly one of two racing appends win", func() {
		recorder, err := newRecorder(dcbpostgres.EncodingTS, uniqueTable("dcb_events_race"))
		Expect(err).NotTo(HaveOccurred())
		defer recorder.Close()

		key := fmt.Sprintf("race-%d", time.Now().UnixNano())
		condition := &dcb.AppendCondition{
			FailIfEventsMatch: dcb.NewQuery(dcb.NewQueryItem([]string{"Claimed"}, dcb.Tags(key))),
		}

		start := make(chan struct{})
		results := make(chan error, 2)

		race := func() {
			<-start
			_, err := recorder.Append(suiteCtx, []dcb.Event{
				dcb.NewEvent("Claimed", dcb.Tags(key), nil),
			}, condition)
			results <- err
		}
		go race()
		go race()
		close(start)

		first := <-results
		second := <-results

		successes := 0
		failures := 0
		for _, err := range []error{first, second} {
			switch {
			case err == nil:
				successes++
			case dcb.IsIntegrityError(err):
				failures++
			default:
				Fail(fmt.Sprintf("unexpected error: %v", err))
			}
		}
		Expect(successes).To(Equal(1))
		Expect(failures).To(Equal(1))
	})
})
