package postgres_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"godcb/pkg/dcb"
	dcbpostgres "godcb/pkg/dcb/postgres"
)

// describeScenarios runs the same end-to-end scenarios (A-F) against one
// encoding, so both EncodingTS and EncodingTT are held to exactly the same
// observable behavior.
func describeScenarios(encoding dcbpostgres.Encoding) {
	var recorder *dcbpostgres.Recorder

	BeforeEach(func() {
		var err error
		recorder, err = newRecorder(encoding, uniqueTable("dcb_events"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if recorder != nil {
			recorder.Close()
		}
	})

	It("Scenario A: basic read/write", func() {
		pos, err := recorder.Append(suiteCtx, []dcb.Event{
			dcb.NewEvent("type1", dcb.Tags("tagX"), []byte("data1")),
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(pos).To(Equal(int64(1)))

		all, allHead, err := recorder.Read(suiteCtx, dcb.QueryAll(), nil, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(1))
		Expect(all[0].Position).To(Equal(int64(1)))
		Expect(*allHead).To(Equal(int64(1)))

		after := int64(1)
		none, noneHead, err := recorder.Read(suiteCtx, dcb.QueryAll(), &after, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeEmpty())
		Expect(*noneHead).To(Equal(int64(1)))

		head, err := recorder.Head(suiteCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(head).To(Equal(int64(1)))

		pos, err = recorder.Append(suiteCtx, []dcb.Event{
			dcb.NewEvent("type2", dcb.Tags("tagA", "tagB"), nil),
			dcb.NewEvent("type3", dcb.Tags("tagA", "tagC"), nil),
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(pos).To(Equal(int64(3)))

		all, _, err = recorder.Read(suiteCtx, dcb.QueryAll(), nil, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))

		tagged, _, err := recorder.Read(suiteCtx, dcb.NewQuery(dcb.NewQueryItem(nil, dcb.Tags("tagA"))), nil, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(tagged).To(HaveLen(2))
		Expect(tagged[0].Position).To(Equal(int64(2)))
		Expect(tagged[1].Position).To(Equal(int64(3)))
	})

	It("Scenario A2: limit reports the last returned position as head, not the log tail", func() {
		seedScenarioA(recorder)

		limited, limitedHead, err := recorder.Read(suiteCtx, dcb.QueryAll(), nil, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(limited).To(HaveLen(2))
		Expect(limitedHead).NotTo(BeNil())
		Expect(*limitedHead).To(Equal(limited[len(limited)-1].Position))
		Expect(*limitedHead).NotTo(Equal(int64(3)))

		rest, restHead, err := recorder.Read(suiteCtx, dcb.QueryAll(), limitedHead, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(rest).To(HaveLen(1))
		Expect(*restHead).To(Equal(int64(3)))

		after := int64(3)
		none, noneHead, err := recorder.Read(suiteCtx, dcb.QueryAll(), &after, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeEmpty())
		Expect(noneHead).To(BeNil())
	})

	It("Scenario B: OR of items", func() {
		seedScenarioA(recorder)

		query := dcb.NewQuery(
			dcb.NewQueryItem(nil, dcb.Tags("tagB")),
			dcb.NewQueryItem(nil, dcb.Tags("tagC")),
		)
		events, _, err := recorder.Read(suiteCtx, query, nil, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(2))
		Expect(events[0].Position).To(Equal(int64(2)))
		Expect(events[1].Position).To(Equal(int64(3)))
	})

	It("Scenario C: AND inside an item", func() {
		seedScenarioA(recorder)

		events, _, err := recorder.Read(suiteCtx, dcb.NewQuery(dcb.NewQueryItem(nil, dcb.Tags("tagA", "tagB"))), nil, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Position).To(Equal(int64(2)))
	})

	It("Scenario D: condition fails", func() {
		seedScenarioA(recorder)

		zero := int64(0)
		_, err := recorder.Append(suiteCtx, []dcb.Event{dcb.NewEvent("type4", nil, nil)}, &dcb.AppendCondition{
			FailIfEventsMatch: dcb.QueryAll(),
			After:             &zero,
		})
		Expect(err).To(HaveOccurred())
		Expect(dcb.IsIntegrityError(err)).To(BeTrue())

		head, err := recorder.Head(suiteCtx)
		Expect(err).NotTo(HaveOccurred())
		Expect(head).To(Equal(int64(3)))
	})

	It("Scenario E: condition succeeds", func() {
		seedScenarioA(recorder)

		three := int64(3)
		pos, err := recorder.Append(suiteCtx, []dcb.Event{dcb.NewEvent("type4", nil, nil)}, &dcb.AppendCondition{
			FailIfEventsMatch: dcb.QueryAll(),
			After:             &three,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(pos).To(Equal(int64(4)))
	})

	It("Scenario F: course-booking sequence rejects a duplicate join", func() {
		_, err := recorder.Append(suiteCtx, []dcb.Event{
			dcb.NewEvent("StudentRegistered", dcb.Tags("student-S"), nil),
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = recorder.Append(suiteCtx, []dcb.Event{
			dcb.NewEvent("CourseRegistered", dcb.Tags("course-C"), nil),
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		joinCondition := func() *dcb.AppendCondition {
			return &dcb.AppendCondition{
				FailIfEventsMatch: dcb.NewQuery(dcb.NewQueryItem(
					[]string{"StudentJoinedCourse"}, dcb.Tags("student-S", "course-C"),
				)),
			}
		}

		_, err = recorder.Append(suiteCtx, []dcb.Event{
			dcb.NewEvent("StudentJoinedCourse", dcb.Tags("student-S", "course-C"), nil),
		}, joinCondition())
		Expect(err).NotTo(HaveOccurred())

		_, err = recorder.Append(suiteCtx, []dcb.Event{
			dcb.NewEvent("StudentJoinedCourse", dcb.Tags("student-S", "course-C"), nil),
		}, joinCondition())
		Expect(err).To(HaveOccurred())
		Expect(dcb.IsIntegrityError(err)).To(BeTrue())
	})
}

func seedScenarioA(recorder *dcbpostgres.Recorder) {
	_, err := recorder.Append(suiteCtx, []dcb.Event{
		dcb.NewEvent("type1", dcb.Tags("tagX"), []byte("data1")),
	}, nil)
	Expect(err).NotTo(HaveOccurred())
	_, err = recorder.Append(suiteCtx, []dcb.Event{
		dcb.NewEvent("type2", dcb.Tags("tagA", "tagB"), nil),
		dcb.NewEvent("type3", dcb.Tags("tagA", "tagC"), nil),
	}, nil)
	Expect(err).NotTo(HaveOccurred())
}

var _ = Describe("TS encoding", func() {
	describeScenarios(dcbpostgres.EncodingTS)
})

var _ = Describe("TT encoding", func() {
	describeScenarios(dcbpostgres.EncodingTT)
})
