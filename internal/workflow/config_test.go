package workflow_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/workflow"
)

var _ = Describe("ParseConfig", func() {
	Context("with a disabled workflow", func() {
		It("should return the disabled config for type disabled", func() {
			cfg, err := workflow.ParseConfig("disabled", 0, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Mode).To(Equal(workflow.ModeDisabled))
		})

		It("should treat an empty type as disabled", func() {
			cfg, err := workflow.ParseConfig("", 0, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Mode).To(Equal(workflow.ModeDisabled))
		})
	})

	Context("with a sequential workflow", func() {
		It("should parse levels in order", func() {
			rules := `{"approval_levels":[{"level":1,"strategy":"manager"},{"level":2,"strategy":"role","role":"finance"}]}`
			cfg, err := workflow.ParseConfig("sequential", 10, rules)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Levels).To(HaveLen(2))
			Expect(cfg.Levels[0].Strategy).To(Equal(workflow.StrategyManager))
			Expect(cfg.Levels[1].Role).To(Equal("finance"))
			Expect(cfg.Priority).To(Equal(10))
		})

		It("should reject a workflow with no levels", func() {
			_, err := workflow.ParseConfig("sequential", 0, `{"approval_levels":[]}`)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeWorkflowConfigInvalid))
		})

		It("should reject levels that are not densely ascending from 1", func() {
			rules := `{"approval_levels":[{"level":1,"strategy":"manager"},{"level":3,"strategy":"manager"}]}`
			_, err := workflow.ParseConfig("sequential", 0, rules)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a role level without a role", func() {
			rules := `{"approval_levels":[{"level":1,"strategy":"role"}]}`
			_, err := workflow.ParseConfig("sequential", 0, rules)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a user level without a user id", func() {
			rules := `{"approval_levels":[{"level":1,"strategy":"user"}]}`
			_, err := workflow.ParseConfig("sequential", 0, rules)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an unknown strategy", func() {
			rules := `{"approval_levels":[{"level":1,"strategy":"committee"}]}`
			_, err := workflow.ParseConfig("sequential", 0, rules)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("with a conditional workflow", func() {
		It("should parse amount bands", func() {
			rules := `{"approval_rules":[{"min_amount":0,"max_amount":10000,"approver_id":0},{"min_amount":10001,"approver_id":7}]}`
			cfg, err := workflow.ParseConfig("conditional", 5, rules)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Rules).To(HaveLen(2))
			Expect(cfg.Rules[1].MaxAmount).To(BeNil())
		})

		It("should reject a workflow with no rules", func() {
			_, err := workflow.ParseConfig("conditional", 0, `{}`)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a rule whose max is below its min", func() {
			rules := `{"approval_rules":[{"min_amount":500,"max_amount":100,"approver_id":7}]}`
			_, err := workflow.ParseConfig("conditional", 0, rules)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("with malformed input", func() {
		It("should reject an unknown workflow type", func() {
			_, err := workflow.ParseConfig("parallel", 0, "{}")
			Expect(err).To(HaveOccurred())
		})

		It("should reject invalid JSON", func() {
			_, err := workflow.ParseConfig("sequential", 0, "{not json")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Config MatchRule", func() {
	var cfg *workflow.Config

	BeforeEach(func() {
		var err error
		rules := `{"approval_rules":[{"min_amount":0,"max_amount":10000,"approver_id":0},{"min_amount":10001,"max_amount":100000,"approver_id":7},{"min_amount":100001,"approver_id":9}]}`
		cfg, err = workflow.ParseConfig("conditional", 0, rules)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should match the lower bound inclusively", func() {
		rule, ok := cfg.MatchRule(0)
		Expect(ok).To(BeTrue())
		Expect(rule.ApproverID).To(Equal(int64(0)))
	})

	It("should match the upper bound inclusively", func() {
		// exactly 100.00 still falls in the auto-approve band
		rule, ok := cfg.MatchRule(10000)
		Expect(ok).To(BeTrue())
		Expect(rule.ApproverID).To(Equal(int64(0)))
	})

	It("should match the next band just above a boundary", func() {
		rule, ok := cfg.MatchRule(10001)
		Expect(ok).To(BeTrue())
		Expect(rule.ApproverID).To(Equal(int64(7)))
	})

	It("should treat a nil max as unbounded above", func() {
		rule, ok := cfg.MatchRule(99999999)
		Expect(ok).To(BeTrue())
		Expect(rule.ApproverID).To(Equal(int64(9)))
	})

	It("should not match on a sequential config", func() {
		seq, err := workflow.ParseConfig("sequential", 0, `{"approval_levels":[{"level":1,"strategy":"manager"}]}`)
		Expect(err).NotTo(HaveOccurred())
		_, ok := seq.MatchRule(5000)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Config LevelAt", func() {
	It("should return levels one-indexed and report past-the-end", func() {
		cfg, err := workflow.ParseConfig("sequential", 0,
			`{"approval_levels":[{"level":1,"strategy":"manager"},{"level":2,"strategy":"role","role":"finance"}]}`)
		Expect(err).NotTo(HaveOccurred())

		lvl, ok := cfg.LevelAt(1)
		Expect(ok).To(BeTrue())
		Expect(lvl.Strategy).To(Equal(workflow.StrategyManager))

		lvl, ok = cfg.LevelAt(2)
		Expect(ok).To(BeTrue())
		Expect(lvl.Role).To(Equal("finance"))

		_, ok = cfg.LevelAt(3)
		Expect(ok).To(BeFalse())

		_, ok = cfg.LevelAt(0)
		Expect(ok).To(BeFalse())
	})
})
