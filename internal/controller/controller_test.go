package controller_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/lyapsim/internal/controller"
	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/lyapunov"
)

func untilTerminal(notes <-chan controller.Notification) []controller.Notification {
	GinkgoHelper()
	var got []controller.Notification
	timeout := time.After(20 * time.Second)
	for {
		select {
		case n, ok := <-notes:
			Expect(ok).To(BeTrue(), "notification channel closed before a terminal notification")
			got = append(got, n)
			if n.Terminal() {
				return got
			}
		case <-timeout:
			Fail("timed out waiting for a terminal notification")
			return got
		}
	}
}

func firstOf(notes <-chan controller.Notification, kind controller.Kind) controller.Notification {
	GinkgoHelper()
	var found controller.Notification
	Eventually(notes).WithTimeout(10 * time.Second).Should(Receive(Satisfy(func(n controller.Notification) bool {
		found = n
		return n.Kind == kind
	})))
	return found
}

func snapshot(c *controller.Controller) controller.Snapshot {
	GinkgoHelper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := c.Snapshot(ctx)
	Expect(err).NotTo(HaveOccurred())
	return s
}

// promptly fails unless f returns nil within a second.
func promptly(f func() error) {
	GinkgoHelper()
	errc := make(chan error, 1)
	go func() { errc <- f() }()
	Eventually(errc).Within(time.Second).Should(Receive(BeNil()))
}

func longRun() lyapunov.Params {
	p := lyapunov.DefaultLogisticParams()
	p.TotalSteps = lyapunov.MaxSteps
	p.Transient = 0
	p.SampleEvery = 1000
	p.ChunkSize = 1000
	return p
}

var _ = Describe("Controller", func() {
	var c *controller.Controller

	BeforeEach(func() {
		c = controller.New(controller.WithBuffer(1 << 16))
		DeferCleanup(c.Close)
	})

	Describe("a completed run", func() {
		var (
			params lyapunov.Params
			notes  []controller.Notification
		)

		BeforeEach(func() {
			params = lyapunov.DefaultLogisticParams()
			Expect(c.Start(params)).To(Succeed())
			notes = untilTerminal(c.Notifications())
		})

		It("ends with a fit followed by the result", func() {
			n := len(notes)
			Expect(n).To(BeNumerically(">=", 2))
			Expect(notes[n-2].Kind).To(Equal(controller.KindFit))
			Expect(notes[n-1].Kind).To(Equal(controller.KindResult))

			res := notes[n-1].Result
			Expect(res.HasLambda()).To(BeTrue())
			Expect(res.Lambda).To(BeNumerically(">", 0))
			Expect(res.Series.Len()).To(Equal(params.TotalSteps))
			Expect(notes[n-2].Fit.Window[1]).To(Equal(res.Series.Times[res.Series.Len()-1]))
		})

		It("reports monotonic progress ending at the total", func() {
			last := 0
			total := params.TotalWork()
			for _, n := range notes {
				if n.Kind != controller.KindProgress {
					continue
				}
				Expect(n.Total).To(Equal(total))
				Expect(n.Done).To(BeNumerically(">=", last))
				last = n.Done
			}
			Expect(last).To(Equal(total))
		})

		It("streams every sample in bounded, independent chunks", func() {
			var points []lyapunov.Sample
			var first []lyapunov.Sample
			for _, n := range notes {
				if n.Kind != controller.KindChunk {
					continue
				}
				Expect(len(n.Points)).To(BeNumerically("<=", params.ChunkSize))
				if first == nil {
					first = n.Points
				}
				points = append(points, n.Points...)
			}
			Expect(points).To(HaveLen(params.TotalSteps))
			Expect(first[0].T).To(BeZero())
			Expect(first[1].T).To(Equal(1.0))
		})

		It("tags every notification with the run", func() {
			for _, n := range notes {
				Expect(n.Run).To(Equal(uint64(1)))
			}
		})

		It("is idle-equivalent afterwards and restarts with the same outcome", func() {
			s := snapshot(c)
			Expect(s.Status).To(Equal(controller.StatusCompleted))
			Expect(s.StepIndex).To(Equal(params.TotalWork()))

			Expect(c.Start(params)).To(Succeed())
			again := untilTerminal(c.Notifications())
			last := again[len(again)-1]
			Expect(last.Kind).To(Equal(controller.KindResult))
			Expect(last.Run).To(Equal(uint64(2)))
			Expect(last.Result.Lambda).To(Equal(notes[len(notes)-1].Result.Lambda))
		})
	})

	Describe("starting while a run is active", func() {
		It("rejects the second start and leaves the run untouched", func() {
			Expect(c.Start(longRun())).To(Succeed())
			Expect(c.Pause()).To(Succeed())
			before := snapshot(c)
			Expect(before.Status).To(Equal(controller.StatusPaused))

			other := lyapunov.DefaultPendulumParams()
			Expect(c.Start(other)).To(Succeed())
			rejected := firstOf(c.Notifications(), controller.KindError)
			Expect(rejected.Class).To(Equal(controller.ClassAlreadyRunning))
			Expect(rejected.Terminal()).To(BeFalse())
			Expect(rejected.Run).To(Equal(uint64(1)))

			after := snapshot(c)
			Expect(after.Run).To(Equal(uint64(1)))
			Expect(after.Status).To(Equal(controller.StatusPaused))

			Expect(c.Abort()).To(Succeed())
			notes := untilTerminal(c.Notifications())
			Expect(notes[len(notes)-1].Class).To(Equal(controller.ClassAborted))
		})
	})

	Describe("pause and resume", func() {
		It("suspends stepping until resumed", func() {
			p := lyapunov.DefaultLogisticParams()
			p.TotalSteps = 3_000_000
			p.SampleEvery = 1000
			p.ChunkSize = 1000
			Expect(c.Start(p)).To(Succeed())
			Expect(c.Pause()).To(Succeed())

			var frozen int
			Eventually(func() int {
				a := snapshot(c).StepIndex
				time.Sleep(20 * time.Millisecond)
				frozen = snapshot(c).StepIndex
				return frozen - a
			}).WithTimeout(5 * time.Second).Should(BeZero())
			Consistently(func() int { return snapshot(c).StepIndex }).
				Within(200 * time.Millisecond).Should(Equal(frozen))

			Expect(c.Resume()).To(Succeed())
			Expect(snapshot(c).Status).To(Equal(controller.StatusRunning))
			notes := untilTerminal(c.Notifications())
			Expect(notes[len(notes)-1].Kind).To(Equal(controller.KindResult))
		})

		It("ignores pause, resume and abort without a run", func() {
			Expect(c.Pause()).To(Succeed())
			Expect(c.Resume()).To(Succeed())
			Expect(c.Abort()).To(Succeed())
			Expect(snapshot(c).Status).To(Equal(controller.StatusIdle))
			Consistently(c.Notifications()).Within(100 * time.Millisecond).ShouldNot(Receive())
		})
	})

	Describe("abort", func() {
		It("emits exactly one terminal error and nothing afterwards", func() {
			p := longRun()
			Expect(c.Start(p)).To(Succeed())
			firstOf(c.Notifications(), controller.KindProgress)

			Expect(c.Abort()).To(Succeed())
			notes := untilTerminal(c.Notifications())
			last := notes[len(notes)-1]
			Expect(last.Kind).To(Equal(controller.KindError))
			Expect(last.Class).To(Equal(controller.ClassAborted))
			Expect(last.Message).To(Equal(controller.AbortMessage))
			for _, n := range notes {
				Expect(n.Kind).NotTo(Equal(controller.KindResult))
			}

			Consistently(c.Notifications()).Within(200 * time.Millisecond).ShouldNot(Receive())
			s := snapshot(c)
			Expect(s.Status).To(Equal(controller.StatusAborted))
			Expect(s.StepIndex).To(BeNumerically("<", p.TotalWork()))
		})

		It("ends a paused run", func() {
			Expect(c.Start(longRun())).To(Succeed())
			Expect(c.Pause()).To(Succeed())
			Expect(c.Abort()).To(Succeed())

			notes := untilTerminal(c.Notifications())
			Expect(notes[len(notes)-1].Class).To(Equal(controller.ClassAborted))
		})
	})

	Describe("numeric overflow", func() {
		It("fails the run with an overflow error", func() {
			p := lyapunov.DefaultPendulumParams()
			p.Gravity = math.MaxFloat64
			p.Length = lyapunov.MinLength
			p.Theta0 = 1
			Expect(c.Start(p)).To(Succeed())

			notes := untilTerminal(c.Notifications())
			last := notes[len(notes)-1]
			Expect(last.Kind).To(Equal(controller.KindError))
			Expect(last.Class).To(Equal(controller.ClassNumericOverflow))
			Expect(last.Err).To(MatchError(dynamo.ErrNumericOverflow))
			Expect(snapshot(c).Status).To(Equal(controller.StatusFailed))
		})
	})

	Describe("Close", func() {
		It("is idempotent on an idle controller", func() {
			Expect(c.Close()).To(Succeed())
			Expect(c.Close()).To(Succeed())
			Eventually(c.Notifications()).Should(BeClosed())
		})

		It("stops a running computation and closes the channel", func() {
			Expect(c.Start(longRun())).To(Succeed())
			firstOf(c.Notifications(), controller.KindProgress)

			Expect(c.Close()).To(Succeed())
			Eventually(c.Notifications()).WithTimeout(5 * time.Second).Should(BeClosed())
		})

		It("stops a paused computation", func() {
			Expect(c.Start(longRun())).To(Succeed())
			Expect(c.Pause()).To(Succeed())

			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = c.Close()
			}()
			Eventually(done).WithTimeout(5 * time.Second).Should(BeClosed())
		})

		It("rejects commands afterwards", func() {
			Expect(c.Close()).To(Succeed())
			Expect(c.Start(lyapunov.DefaultLogisticParams())).To(MatchError(controller.ErrClosed))
			_, err := c.Snapshot(context.Background())
			Expect(err).To(MatchError(controller.ErrClosed))
		})
	})

	Describe("with a consumer that is not reading", func() {
		const buffer = 4

		BeforeEach(func() {
			c = controller.New(controller.WithBuffer(buffer))
			DeferCleanup(c.Close)
			Expect(c.Start(longRun())).To(Succeed())
			Eventually(func() int { return len(c.Notifications()) }).
				WithTimeout(5 * time.Second).Should(Equal(buffer))
		})

		It("keeps answering commands after rejecting a second start", func() {
			promptly(func() error { return c.Start(lyapunov.DefaultPendulumParams()) })
			promptly(c.Pause)
			Expect(snapshot(c).Status).To(Equal(controller.StatusPaused))
			promptly(c.Resume)
			promptly(c.Abort)

			notes := untilTerminal(c.Notifications())
			rejected, terminal := 0, 0
			for _, n := range notes {
				Expect(n.Run).To(Equal(uint64(1)))
				if n.Kind == controller.KindError && n.Class == controller.ClassAlreadyRunning {
					rejected++
				}
				if n.Terminal() {
					terminal++
				}
			}
			Expect(rejected).To(Equal(1))
			Expect(terminal).To(Equal(1))
			Expect(notes[len(notes)-1].Class).To(Equal(controller.ClassAborted))
			Consistently(c.Notifications()).Within(200 * time.Millisecond).ShouldNot(Receive())
		})

		It("answers snapshots while the run waits on delivery", func() {
			var stuck int
			Eventually(func() int {
				a := snapshot(c).StepIndex
				time.Sleep(20 * time.Millisecond)
				stuck = snapshot(c).StepIndex
				return stuck - a
			}).WithTimeout(5 * time.Second).Should(BeZero())
			Expect(snapshot(c).Status).To(Equal(controller.StatusRunning))

			promptly(c.Abort)
			notes := untilTerminal(c.Notifications())
			Expect(notes).To(HaveLen(buffer + 1))
			Expect(notes[buffer].Class).To(Equal(controller.ClassAborted))
			Expect(snapshot(c).StepIndex).To(Equal(stuck))
		})

		It("holds a new run back until the previous terminal notification is delivered", func() {
			promptly(c.Abort)
			Eventually(func() controller.Status { return snapshot(c).Status }).
				WithTimeout(5 * time.Second).Should(Equal(controller.StatusAborted))

			p := lyapunov.DefaultLogisticParams()
			promptly(func() error { return c.Start(p) })
			Expect(snapshot(c).Run).To(Equal(uint64(2)))

			first := untilTerminal(c.Notifications())
			for _, n := range first {
				Expect(n.Run).To(Equal(uint64(1)))
			}
			Expect(first[len(first)-1].Class).To(Equal(controller.ClassAborted))

			second := untilTerminal(c.Notifications())
			for _, n := range second {
				Expect(n.Run).To(Equal(uint64(2)))
			}
			Expect(second[len(second)-1].Kind).To(Equal(controller.KindResult))
		})
	})

	Describe("with an unbuffered notification channel", func() {
		It("aborts a run blocked on its first notification", func() {
			c = controller.New(controller.WithBuffer(0))
			DeferCleanup(c.Close)
			Expect(c.Start(longRun())).To(Succeed())
			time.Sleep(50 * time.Millisecond)

			promptly(c.Abort)
			var n controller.Notification
			Eventually(c.Notifications()).WithTimeout(5 * time.Second).Should(Receive(&n))
			Expect(n.Class).To(Equal(controller.ClassAborted))
			Expect(n.Terminal()).To(BeTrue())
			Consistently(c.Notifications()).Within(200 * time.Millisecond).ShouldNot(Receive())
		})
	})
})
