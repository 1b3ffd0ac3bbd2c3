package internal

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestInternal(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Core Types Suite")
}

var _ = ginkgo.Describe("Expense status machine", func() {
	ginkgo.It("allows every legal transition", func() {
		legal := [][2]ExpenseStatus{
			{ExpenseStatusDraft, ExpenseStatusSubmitted},
			{ExpenseStatusSubmitted, ExpenseStatusReviewed},
			{ExpenseStatusSubmitted, ExpenseStatusManagerApproved},
			{ExpenseStatusSubmitted, ExpenseStatusManagerRejected},
			{ExpenseStatusReviewed, ExpenseStatusManagerApproved},
			{ExpenseStatusReviewed, ExpenseStatusManagerRejected},
			{ExpenseStatusManagerApproved, ExpenseStatusOwnerApproved},
			{ExpenseStatusManagerApproved, ExpenseStatusOwnerRejected},
			{ExpenseStatusOwnerApproved, ExpenseStatusPendingPayment},
			{ExpenseStatusOwnerApproved, ExpenseStatusPaid},
			{ExpenseStatusPendingPayment, ExpenseStatusPaid},
		}
		for _, pair := range legal {
			gomega.Expect(pair[0].CanTransitionTo(pair[1])).To(gomega.BeTrue(),
				"%s -> %s should be legal", pair[0], pair[1])
		}
	})

	ginkgo.It("rejects skipping stages", func() {
		gomega.Expect(ExpenseStatusDraft.CanTransitionTo(ExpenseStatusManagerApproved)).To(gomega.BeFalse())
		gomega.Expect(ExpenseStatusDraft.CanTransitionTo(ExpenseStatusPaid)).To(gomega.BeFalse())
		gomega.Expect(ExpenseStatusSubmitted.CanTransitionTo(ExpenseStatusOwnerApproved)).To(gomega.BeFalse())
		gomega.Expect(ExpenseStatusSubmitted.CanTransitionTo(ExpenseStatusPaid)).To(gomega.BeFalse())
		gomega.Expect(ExpenseStatusManagerApproved.CanTransitionTo(ExpenseStatusPaid)).To(gomega.BeFalse())
	})

	ginkgo.It("rejects moving backwards", func() {
		gomega.Expect(ExpenseStatusSubmitted.CanTransitionTo(ExpenseStatusDraft)).To(gomega.BeFalse())
		gomega.Expect(ExpenseStatusManagerApproved.CanTransitionTo(ExpenseStatusSubmitted)).To(gomega.BeFalse())
		gomega.Expect(ExpenseStatusPaid.CanTransitionTo(ExpenseStatusOwnerApproved)).To(gomega.BeFalse())
	})

	ginkgo.It("allows nothing out of terminal states", func() {
		for _, terminal := range []ExpenseStatus{
			ExpenseStatusPaid,
			ExpenseStatusManagerRejected,
			ExpenseStatusOwnerRejected,
		} {
			gomega.Expect(terminal.IsTerminal()).To(gomega.BeTrue())
			for _, target := range []ExpenseStatus{
				ExpenseStatusDraft, ExpenseStatusSubmitted, ExpenseStatusReviewed,
				ExpenseStatusManagerApproved, ExpenseStatusOwnerApproved,
				ExpenseStatusPendingPayment, ExpenseStatusPaid,
				ExpenseStatusManagerRejected, ExpenseStatusOwnerRejected,
			} {
				gomega.Expect(terminal.CanTransitionTo(target)).To(gomega.BeFalse(),
					"terminal %s must not transition to %s", terminal, target)
			}
		}
	})

	ginkgo.It("treats reviewed the same as submitted for manager actions", func() {
		gomega.Expect(ExpenseStatusReviewed.CanTransitionTo(ExpenseStatusManagerApproved)).To(
			gomega.Equal(ExpenseStatusSubmitted.CanTransitionTo(ExpenseStatusManagerApproved)))
		gomega.Expect(ExpenseStatusReviewed.CanTransitionTo(ExpenseStatusManagerRejected)).To(
			gomega.Equal(ExpenseStatusSubmitted.CanTransitionTo(ExpenseStatusManagerRejected)))
	})

	ginkgo.It("recognizes valid and invalid status strings", func() {
		gomega.Expect(ExpenseStatusSubmitted.Valid()).To(gomega.BeTrue())
		gomega.Expect(ExpenseStatus("approved_by_boss").Valid()).To(gomega.BeFalse())
	})
})

var _ = ginkgo.Describe("Advance status machine", func() {
	ginkgo.It("allows the three legal transitions only", func() {
		gomega.Expect(AdvanceStatusPending.CanTransitionTo(AdvanceStatusApproved)).To(gomega.BeTrue())
		gomega.Expect(AdvanceStatusPending.CanTransitionTo(AdvanceStatusRejected)).To(gomega.BeTrue())
		gomega.Expect(AdvanceStatusApproved.CanTransitionTo(AdvanceStatusDisbursed)).To(gomega.BeTrue())

		gomega.Expect(AdvanceStatusPending.CanTransitionTo(AdvanceStatusDisbursed)).To(gomega.BeFalse())
		gomega.Expect(AdvanceStatusRejected.CanTransitionTo(AdvanceStatusApproved)).To(gomega.BeFalse())
		gomega.Expect(AdvanceStatusRejected.CanTransitionTo(AdvanceStatusDisbursed)).To(gomega.BeFalse())
		gomega.Expect(AdvanceStatusDisbursed.CanTransitionTo(AdvanceStatusApproved)).To(gomega.BeFalse())
	})

	ginkgo.It("marks rejected and disbursed as terminal", func() {
		gomega.Expect(AdvanceStatusRejected.IsTerminal()).To(gomega.BeTrue())
		gomega.Expect(AdvanceStatusDisbursed.IsTerminal()).To(gomega.BeTrue())
		gomega.Expect(AdvanceStatusPending.IsTerminal()).To(gomega.BeFalse())
		gomega.Expect(AdvanceStatusApproved.IsTerminal()).To(gomega.BeFalse())
	})
})

var _ = ginkgo.Describe("Role resolution", func() {
	ginkgo.It("picks the primary role by explicit priority, not list order", func() {
		gomega.Expect(PrimaryRole([]Role{RoleEmployee, RoleManager})).To(gomega.Equal(RoleManager))
		gomega.Expect(PrimaryRole([]Role{RoleManager, RoleEmployee})).To(gomega.Equal(RoleManager))
		gomega.Expect(PrimaryRole([]Role{RoleAccounts, RoleOwner, RoleEmployee})).To(gomega.Equal(RoleOwner))
		gomega.Expect(PrimaryRole([]Role{RoleManager, RoleAccounts})).To(gomega.Equal(RoleAccounts))
	})

	ginkgo.It("defaults the display role to employee for an empty set", func() {
		gomega.Expect(PrimaryRole(nil)).To(gomega.Equal(RoleEmployee))
	})

	ginkgo.It("fails closed: an empty role set passes no role check", func() {
		bare := Actor{ID: 7}
		gomega.Expect(bare.HasRole(RoleEmployee)).To(gomega.BeFalse())
		gomega.Expect(bare.HasAnyRole(RoleManager, RoleOwner, RoleAccounts)).To(gomega.BeFalse())
		gomega.Expect(bare.IsStaff()).To(gomega.BeFalse())
	})

	ginkgo.It("parses only the four known roles", func() {
		for _, name := range []string{"employee", "manager", "owner", "accounts"} {
			_, ok := ParseRole(name)
			gomega.Expect(ok).To(gomega.BeTrue())
		}
		_, ok := ParseRole("admin")
		gomega.Expect(ok).To(gomega.BeFalse())
	})
})
