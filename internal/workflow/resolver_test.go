package workflow_test

import (
	"context"
	"log/slog"
	"os"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/expense"
	"github.com/clearspend/expense-approval/internal/user"
	"github.com/clearspend/expense-approval/internal/workflow"
)

// Mock directory for testing
type mockDirectory struct {
	users    map[int64]*user.User
	managers map[int64]int64
	getError error
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		users:    make(map[int64]*user.User),
		managers: make(map[int64]int64),
	}
}

func (m *mockDirectory) addUser(id, companyID int64, role string, active bool) *user.User {
	u := &user.User{ID: id, CompanyID: companyID, Role: role, IsActive: active}
	m.users[id] = u
	return u
}

func (m *mockDirectory) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (m *mockDirectory) ManagerOf(ctx context.Context, userID int64) (*user.User, error) {
	mgrID, ok := m.managers[userID]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return m.GetByID(ctx, mgrID)
}

func (m *mockDirectory) ActiveByRole(ctx context.Context, companyID int64, role string) ([]*user.User, error) {
	var out []*user.User
	for _, u := range m.users {
		if u.CompanyID == companyID && u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	// id-ascending, matching the repository's ordering contract
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustParse(workflowType string, rules string) *workflow.Config {
	cfg, err := workflow.ParseConfig(workflowType, 0, rules)
	Expect(err).NotTo(HaveOccurred())
	return cfg
}

var _ = Describe("Resolver", func() {
	var (
		resolver *workflow.Resolver
		dir      *mockDirectory
		exp      *expense.Expense
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = newMockDirectory()
		resolver = workflow.NewResolver(dir, testLogger())
		exp = &expense.Expense{
			ID:               1,
			CompanyID:        10,
			SubmitterID:      100,
			AmountCompanyCcy: 50000,
		}
	})

	Context("with a disabled workflow", func() {
		It("should resolve to no approver", func() {
			approver, err := resolver.NextApprover(ctx, exp, workflow.Disabled(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(BeNil())
		})

		It("should resolve to no approver for a nil config", func() {
			approver, err := resolver.NextApprover(ctx, exp, nil, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(BeNil())
		})
	})

	Context("with a sequential manager level", func() {
		cfg := func() *workflow.Config {
			return mustParse("sequential", `{"approval_levels":[{"level":1,"strategy":"manager"}]}`)
		}

		It("should resolve the submitter's manager", func() {
			dir.addUser(100, 10, user.RoleEmployee, true)
			mgr := dir.addUser(200, 10, user.RoleManager, true)
			dir.managers[100] = 200

			approver, err := resolver.NextApprover(ctx, exp, cfg(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(Equal(mgr))
		})

		It("should resolve to no approver when the submitter has no manager", func() {
			dir.addUser(100, 10, user.RoleEmployee, true)

			approver, err := resolver.NextApprover(ctx, exp, cfg(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(BeNil())
		})
	})

	Context("with a sequential role level", func() {
		cfg := func() *workflow.Config {
			return mustParse("sequential", `{"approval_levels":[{"level":1,"strategy":"role","role":"finance"}]}`)
		}

		It("should pick the candidate with the lowest id", func() {
			dir.addUser(300, 10, user.RoleFinance, true)
			first := dir.addUser(250, 10, user.RoleFinance, true)
			dir.addUser(400, 10, user.RoleFinance, true)

			approver, err := resolver.NextApprover(ctx, exp, cfg(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(Equal(first))
		})

		It("should ignore inactive and other-company candidates", func() {
			dir.addUser(250, 10, user.RoleFinance, false)
			dir.addUser(260, 99, user.RoleFinance, true)
			only := dir.addUser(300, 10, user.RoleFinance, true)

			approver, err := resolver.NextApprover(ctx, exp, cfg(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(Equal(only))
		})

		It("should resolve to no approver when no candidates exist", func() {
			approver, err := resolver.NextApprover(ctx, exp, cfg(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(BeNil())
		})
	})

	Context("with a sequential user level", func() {
		It("should resolve the named user", func() {
			named := dir.addUser(555, 10, user.RoleManager, true)
			cfg := mustParse("sequential", `{"approval_levels":[{"level":1,"strategy":"user","user_id":555}]}`)

			approver, err := resolver.NextApprover(ctx, exp, cfg, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(Equal(named))
		})

		It("should fail with a configuration error for an unknown user", func() {
			cfg := mustParse("sequential", `{"approval_levels":[{"level":1,"strategy":"user","user_id":999}]}`)

			_, err := resolver.NextApprover(ctx, exp, cfg, 0)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeWorkflowConfigInvalid))
		})
	})

	Context("advancing a sequential chain", func() {
		It("should resolve level 2 after level 1 and end after the last level", func() {
			dir.addUser(100, 10, user.RoleEmployee, true)
			mgr := dir.addUser(200, 10, user.RoleManager, true)
			fin := dir.addUser(300, 10, user.RoleFinance, true)
			dir.managers[100] = 200
			cfg := mustParse("sequential", `{"approval_levels":[{"level":1,"strategy":"manager"},{"level":2,"strategy":"role","role":"finance"}]}`)

			approver, err := resolver.NextApprover(ctx, exp, cfg, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(Equal(mgr))

			approver, err = resolver.NextApprover(ctx, exp, cfg, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(Equal(fin))

			approver, err = resolver.NextApprover(ctx, exp, cfg, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(BeNil())
		})
	})

	Context("with a conditional workflow", func() {
		cfg := func() *workflow.Config {
			return mustParse("conditional", `{"approval_rules":[{"min_amount":0,"max_amount":10000,"approver_id":0},{"min_amount":10001,"approver_id":700}]}`)
		}

		It("should auto-approve amounts inside the zero-approver band", func() {
			exp.AmountCompanyCcy = 10000
			approver, err := resolver.NextApprover(ctx, exp, cfg(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(BeNil())
		})

		It("should resolve the rule's approver above the boundary", func() {
			approverUser := dir.addUser(700, 10, user.RoleFinance, true)
			exp.AmountCompanyCcy = 10001

			approver, err := resolver.NextApprover(ctx, exp, cfg(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(Equal(approverUser))
		})

		It("should be single-step: no approver past level 1", func() {
			dir.addUser(700, 10, user.RoleFinance, true)
			exp.AmountCompanyCcy = 10001

			approver, err := resolver.NextApprover(ctx, exp, cfg(), 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(approver).To(BeNil())
		})

		It("should fail with a configuration error for an unknown rule approver", func() {
			exp.AmountCompanyCcy = 10001

			_, err := resolver.NextApprover(ctx, exp, cfg(), 0)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeWorkflowConfigInvalid))
		})
	})
})
