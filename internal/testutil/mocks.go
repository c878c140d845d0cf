package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// ScopeMatches applies the ownership filter the way the postgres repositories
// do: personal rows match on user_id with no organization, org rows match on
// organization_id alone.
func ScopeMatches(scope domain.Scope, userID uuid.UUID, orgID *uuid.UUID) bool {
	if scope.IsOrg() {
		return orgID != nil && *orgID == *scope.OrganizationID
	}
	return userID == scope.UserID && orgID == nil
}

// MockUserRepository is a map-backed domain.UserRepository.
type MockUserRepository struct {
	Users map[uuid.UUID]*domain.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[uuid.UUID]*domain.User)}
}

func (m *MockUserRepository) Create(user *domain.User) (*domain.User, error) {
	for _, u := range m.Users {
		if u.Username == user.Username {
			return nil, domain.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	m.Users[user.ID] = user
	return user, nil
}

func (m *MockUserRepository) GetByID(id uuid.UUID) (*domain.User, error) {
	if user, ok := m.Users[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(username string) (*domain.User, error) {
	for _, u := range m.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(email string) (*domain.User, error) {
	for _, u := range m.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Update(user *domain.User) (*domain.User, error) {
	if _, ok := m.Users[user.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	m.Users[user.ID] = user
	return user, nil
}

func (m *MockUserRepository) SetCurrentOrganization(userID uuid.UUID, orgID *uuid.UUID) error {
	user, ok := m.Users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.CurrentOrganizationID = orgID
	return nil
}

func (m *MockUserRepository) Delete(id uuid.UUID) error {
	user, ok := m.Users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.IsAdmin || user.IsSuperAdmin {
		return domain.ErrAdminNotDeletable
	}
	delete(m.Users, id)
	return nil
}

// MockOrganizationRepository is a map-backed domain.OrganizationRepository.
type MockOrganizationRepository struct {
	Orgs    map[uuid.UUID]*domain.Organization
	Members map[uuid.UUID][]*domain.OrgMember
}

func NewMockOrganizationRepository() *MockOrganizationRepository {
	return &MockOrganizationRepository{
		Orgs:    make(map[uuid.UUID]*domain.Organization),
		Members: make(map[uuid.UUID][]*domain.OrgMember),
	}
}

func (m *MockOrganizationRepository) Create(org *domain.Organization, ownerMember *domain.OrgMember) (*domain.Organization, error) {
	for _, o := range m.Orgs {
		if o.Name == org.Name || o.Slug == org.Slug {
			return nil, domain.ErrOrganizationNameTaken
		}
	}
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	org.CreatedAt = time.Now()
	m.Orgs[org.ID] = org
	ownerMember.ID = uuid.New()
	ownerMember.OrganizationID = org.ID
	m.Members[org.ID] = []*domain.OrgMember{ownerMember}
	return org, nil
}

func (m *MockOrganizationRepository) GetByID(id uuid.UUID) (*domain.Organization, error) {
	if org, ok := m.Orgs[id]; ok {
		return org, nil
	}
	return nil, domain.ErrOrganizationNotFound
}

func (m *MockOrganizationRepository) GetBySlug(slug string) (*domain.Organization, error) {
	for _, org := range m.Orgs {
		if org.Slug == slug {
			return org, nil
		}
	}
	return nil, domain.ErrOrganizationNotFound
}

func (m *MockOrganizationRepository) Update(org *domain.Organization) (*domain.Organization, error) {
	if _, ok := m.Orgs[org.ID]; !ok {
		return nil, domain.ErrOrganizationNotFound
	}
	m.Orgs[org.ID] = org
	return org, nil
}

func (m *MockOrganizationRepository) Delete(id uuid.UUID) error {
	if _, ok := m.Orgs[id]; !ok {
		return domain.ErrOrganizationNotFound
	}
	delete(m.Orgs, id)
	delete(m.Members, id)
	return nil
}

func (m *MockOrganizationRepository) GetMember(orgID, userID uuid.UUID) (*domain.OrgMember, error) {
	for _, member := range m.Members[orgID] {
		if member.UserID == userID {
			return member, nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

func (m *MockOrganizationRepository) ListMembers(orgID uuid.UUID) ([]*domain.OrgMember, error) {
	return m.Members[orgID], nil
}

func (m *MockOrganizationRepository) AddMember(member *domain.OrgMember) (*domain.OrgMember, error) {
	for _, existing := range m.Members[member.OrganizationID] {
		if existing.UserID == member.UserID {
			return nil, domain.ErrMemberAlreadyExists
		}
	}
	member.ID = uuid.New()
	member.CreatedAt = time.Now()
	m.Members[member.OrganizationID] = append(m.Members[member.OrganizationID], member)
	return member, nil
}

func (m *MockOrganizationRepository) UpdateMemberRole(orgID, userID uuid.UUID, role domain.OrgRole) (*domain.OrgMember, error) {
	for _, member := range m.Members[orgID] {
		if member.UserID == userID {
			member.Role = role
			return member, nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

func (m *MockOrganizationRepository) RemoveMember(orgID, userID uuid.UUID) error {
	members := m.Members[orgID]
	for i, member := range members {
		if member.UserID == userID {
			m.Members[orgID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return domain.ErrMemberNotFound
}

func (m *MockOrganizationRepository) ListByUser(userID uuid.UUID) ([]*domain.Organization, error) {
	var orgs []*domain.Organization
	for orgID, members := range m.Members {
		for _, member := range members {
			if member.UserID == userID && member.IsActive {
				if org, ok := m.Orgs[orgID]; ok {
					orgs = append(orgs, org)
				}
			}
		}
	}
	return orgs, nil
}

// MockCategoryRepository is a map-backed domain.CategoryRepository.
type MockCategoryRepository struct {
	Categories map[uuid.UUID]*domain.Category
	Dependents map[uuid.UUID]bool
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		Categories: make(map[uuid.UUID]*domain.Category),
		Dependents: make(map[uuid.UUID]bool),
	}
}

func (m *MockCategoryRepository) Create(scope domain.Scope, category *domain.Category) (*domain.Category, error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	category.UserID = scope.UserID
	category.OrganizationID = scope.OrganizationID
	category.CreatedAt = time.Now()
	m.Categories[category.ID] = category
	return category, nil
}

func (m *MockCategoryRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Category, error) {
	if c, ok := m.Categories[id]; ok && ScopeMatches(scope, c.UserID, c.OrganizationID) {
		return c, nil
	}
	return nil, domain.ErrCategoryNotFound
}

func (m *MockCategoryRepository) List(scope domain.Scope, includeArchived bool) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, c := range m.Categories {
		if !ScopeMatches(scope, c.UserID, c.OrganizationID) {
			continue
		}
		if c.IsArchived && !includeArchived {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (m *MockCategoryRepository) Update(scope domain.Scope, category *domain.Category) (*domain.Category, error) {
	if _, err := m.GetByID(scope, category.ID); err != nil {
		return nil, err
	}
	m.Categories[category.ID] = category
	return category, nil
}

func (m *MockCategoryRepository) Archive(scope domain.Scope, id uuid.UUID) error {
	c, err := m.GetByID(scope, id)
	if err != nil {
		return err
	}
	c.IsArchived = true
	return nil
}

func (m *MockCategoryRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if _, err := m.GetByID(scope, id); err != nil {
		return err
	}
	delete(m.Categories, id)
	return nil
}

func (m *MockCategoryRepository) HasDependents(scope domain.Scope, id uuid.UUID) (bool, error) {
	return m.Dependents[id], nil
}

func (m *MockCategoryRepository) ExistsByNameAndType(scope domain.Scope, name string, categoryType domain.CategoryType, excludeID *uuid.UUID) (bool, error) {
	for _, c := range m.Categories {
		if !ScopeMatches(scope, c.UserID, c.OrganizationID) || c.IsArchived {
			continue
		}
		if excludeID != nil && c.ID == *excludeID {
			continue
		}
		if c.Name == name && c.Type == categoryType {
			return true, nil
		}
	}
	return false, nil
}

// MockTransactionRepository is a map-backed domain.TransactionRepository.
type MockTransactionRepository struct {
	Transactions map[uuid.UUID]*domain.Transaction
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{Transactions: make(map[uuid.UUID]*domain.Transaction)}
}

func (m *MockTransactionRepository) Create(scope domain.Scope, tx *domain.Transaction) (*domain.Transaction, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.UserID = scope.UserID
	tx.OrganizationID = scope.OrganizationID
	tx.CreatedAt = time.Now()
	m.Transactions[tx.ID] = tx
	return tx, nil
}

func (m *MockTransactionRepository) BulkCreate(scope domain.Scope, txs []*domain.Transaction) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		created, err := m.Create(scope, tx)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (m *MockTransactionRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Transaction, error) {
	if tx, ok := m.Transactions[id]; ok && ScopeMatches(scope, tx.UserID, tx.OrganizationID) {
		return tx, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) scoped(scope domain.Scope) []*domain.Transaction {
	var out []*domain.Transaction
	for _, tx := range m.Transactions {
		if ScopeMatches(scope, tx.UserID, tx.OrganizationID) {
			out = append(out, tx)
		}
	}
	return out
}

func (m *MockTransactionRepository) List(scope domain.Scope, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	var matched []*domain.Transaction
	for _, tx := range m.scoped(scope) {
		if filters.StartDate != nil && tx.Date.Before(*filters.StartDate) {
			continue
		}
		if filters.EndDate != nil && tx.Date.After(*filters.EndDate) {
			continue
		}
		if filters.Type != nil && tx.Type != *filters.Type {
			continue
		}
		if filters.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *filters.CategoryID) {
			continue
		}
		if filters.EntryPattern != nil && tx.EntryPattern != *filters.EntryPattern {
			continue
		}
		matched = append(matched, tx)
	}
	sort.Slice(matched, func(i, j int) bool {
		if filters.SortDesc {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].Date.Before(matched[j].Date)
	})

	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	total := int64(len(matched))
	pages := int32((total + int64(pageSize) - 1) / int64(pageSize))
	start := int((page - 1) * pageSize)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(pageSize)
	if end > len(matched) {
		end = len(matched)
	}
	return &domain.PaginatedTransactions{
		Items:    matched[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	}, nil
}

func (m *MockTransactionRepository) ListByDateRange(scope domain.Scope, start, end time.Time) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, tx := range m.scoped(scope) {
		if !tx.Date.Before(start) && !tx.Date.After(end) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MockTransactionRepository) Update(scope domain.Scope, tx *domain.Transaction) (*domain.Transaction, error) {
	if _, err := m.GetByID(scope, tx.ID); err != nil {
		return nil, err
	}
	m.Transactions[tx.ID] = tx
	return tx, nil
}

func (m *MockTransactionRepository) BulkUpdate(scope domain.Scope, txs []*domain.Transaction) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		updated, err := m.Update(scope, tx)
		if err != nil {
			return nil, err
		}
		out = append(out, updated)
	}
	return out, nil
}

func (m *MockTransactionRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if _, err := m.GetByID(scope, id); err != nil {
		return err
	}
	delete(m.Transactions, id)
	return nil
}

func (m *MockTransactionRepository) BulkDelete(scope domain.Scope, ids []uuid.UUID) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if err := m.Delete(scope, id); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockTransactionRepository) MaterialisedKeys(scope domain.Scope, start, end time.Time) ([]domain.MaterialisedKey, error) {
	var keys []domain.MaterialisedKey
	for _, tx := range m.scoped(scope) {
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		switch {
		case tx.RecurringSourceID != nil:
			keys = append(keys, domain.MaterialisedKey{Kind: domain.SourceFixed, SourceID: *tx.RecurringSourceID, Year: tx.Date.Year(), Month: tx.Date.Month()})
		case tx.InstallmentID != nil:
			keys = append(keys, domain.MaterialisedKey{Kind: domain.SourceInstallment, SourceID: *tx.InstallmentID, Year: tx.Date.Year(), Month: tx.Date.Month()})
		case tx.LoanID != nil:
			keys = append(keys, domain.MaterialisedKey{Kind: domain.SourceLoan, SourceID: *tx.LoanID, Year: tx.Date.Year(), Month: tx.Date.Month()})
		}
	}
	return keys, nil
}

func (m *MockTransactionRepository) ExistsForSource(scope domain.Scope, kind domain.SourceKind, sourceID uuid.UUID, date time.Time) (bool, error) {
	for _, tx := range m.scoped(scope) {
		if !tx.IsRecurring || !tx.Date.Equal(date) {
			continue
		}
		switch kind {
		case domain.SourceFixed:
			if tx.RecurringSourceID != nil && *tx.RecurringSourceID == sourceID {
				return true, nil
			}
		case domain.SourceInstallment:
			if tx.InstallmentID != nil && *tx.InstallmentID == sourceID {
				return true, nil
			}
		case domain.SourceLoan:
			if tx.LoanID != nil && *tx.LoanID == sourceID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *MockTransactionRepository) CountByCategory(scope domain.Scope, categoryID uuid.UUID) (int64, error) {
	var count int64
	for _, tx := range m.scoped(scope) {
		if tx.CategoryID != nil && *tx.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

// MockFixedScheduleRepository is a map-backed domain.FixedScheduleRepository.
// Transactions, when wired, backs the Materialise guard the way the
// transactions table does in postgres.
type MockFixedScheduleRepository struct {
	Schedules    map[uuid.UUID]*domain.FixedSchedule
	Transactions *MockTransactionRepository
}

func NewMockFixedScheduleRepository() *MockFixedScheduleRepository {
	return &MockFixedScheduleRepository{Schedules: make(map[uuid.UUID]*domain.FixedSchedule)}
}

func (m *MockFixedScheduleRepository) Create(scope domain.Scope, schedule *domain.FixedSchedule) (*domain.FixedSchedule, error) {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	schedule.UserID = scope.UserID
	schedule.OrganizationID = scope.OrganizationID
	schedule.CreatedAt = time.Now()
	m.Schedules[schedule.ID] = schedule
	return schedule, nil
}

func (m *MockFixedScheduleRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.FixedSchedule, error) {
	if s, ok := m.Schedules[id]; ok && ScopeMatches(scope, s.UserID, s.OrganizationID) {
		return s, nil
	}
	return nil, domain.ErrFixedScheduleNotFound
}

func (m *MockFixedScheduleRepository) List(scope domain.Scope, activeOnly bool) ([]*domain.FixedSchedule, error) {
	var out []*domain.FixedSchedule
	for _, s := range m.Schedules {
		if !ScopeMatches(scope, s.UserID, s.OrganizationID) {
			continue
		}
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MockFixedScheduleRepository) Update(scope domain.Scope, schedule *domain.FixedSchedule) (*domain.FixedSchedule, error) {
	if _, err := m.GetByID(scope, schedule.ID); err != nil {
		return nil, err
	}
	m.Schedules[schedule.ID] = schedule
	return schedule, nil
}

func (m *MockFixedScheduleRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if _, err := m.GetByID(scope, id); err != nil {
		return err
	}
	delete(m.Schedules, id)
	return nil
}

func (m *MockFixedScheduleRepository) ListDue(scope domain.Scope, refDate time.Time) ([]*domain.FixedSchedule, error) {
	var out []*domain.FixedSchedule
	for _, s := range m.Schedules {
		if ScopeMatches(scope, s.UserID, s.OrganizationID) && s.DueOn(refDate) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockFixedScheduleRepository) Materialise(scope domain.Scope, id uuid.UUID, refDate time.Time, transaction *domain.Transaction) (*domain.Transaction, error) {
	if _, err := m.GetByID(scope, id); err != nil {
		return nil, err
	}
	if m.Transactions == nil {
		return transaction, nil
	}
	exists, err := m.Transactions.ExistsForSource(scope, domain.SourceFixed, id, refDate)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlreadyExists
	}
	return m.Transactions.Create(scope, transaction)
}

// MockInstallmentRepository is a map-backed domain.InstallmentRepository.
// Reads hand out copies, so a caller's mutation reaches the store only
// through Update, Mutate or Charge, matching the postgres scan-per-call
// behaviour.
type MockInstallmentRepository struct {
	Installments map[uuid.UUID]*domain.Installment
	Transactions *MockTransactionRepository
}

func NewMockInstallmentRepository() *MockInstallmentRepository {
	return &MockInstallmentRepository{Installments: make(map[uuid.UUID]*domain.Installment)}
}

func (m *MockInstallmentRepository) Create(scope domain.Scope, installment *domain.Installment) (*domain.Installment, error) {
	if installment.ID == uuid.Nil {
		installment.ID = uuid.New()
	}
	installment.UserID = scope.UserID
	installment.OrganizationID = scope.OrganizationID
	installment.CreatedAt = time.Now()
	m.Installments[installment.ID] = installment
	return installment, nil
}

func (m *MockInstallmentRepository) getStored(scope domain.Scope, id uuid.UUID) (*domain.Installment, error) {
	if i, ok := m.Installments[id]; ok && ScopeMatches(scope, i.UserID, i.OrganizationID) {
		return i, nil
	}
	return nil, domain.ErrInstallmentNotFound
}

func (m *MockInstallmentRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Installment, error) {
	stored, err := m.getStored(scope, id)
	if err != nil {
		return nil, err
	}
	return cloneInstallment(stored), nil
}

func (m *MockInstallmentRepository) List(scope domain.Scope) ([]*domain.Installment, error) {
	var out []*domain.Installment
	for _, i := range m.Installments {
		if ScopeMatches(scope, i.UserID, i.OrganizationID) {
			out = append(out, cloneInstallment(i))
		}
	}
	return out, nil
}

func (m *MockInstallmentRepository) Update(scope domain.Scope, installment *domain.Installment) (*domain.Installment, error) {
	if _, err := m.GetByID(scope, installment.ID); err != nil {
		return nil, err
	}
	m.Installments[installment.ID] = installment
	return installment, nil
}

func (m *MockInstallmentRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if _, err := m.GetByID(scope, id); err != nil {
		return err
	}
	delete(m.Installments, id)
	return nil
}

func (m *MockInstallmentRepository) Mutate(scope domain.Scope, id uuid.UUID, fn func(*domain.Installment) error) (*domain.Installment, error) {
	stored, err := m.getStored(scope, id)
	if err != nil {
		return nil, err
	}
	next := cloneInstallment(stored)
	if err := fn(next); err != nil {
		return nil, err
	}
	m.Installments[id] = next
	return next, nil
}

func (m *MockInstallmentRepository) Charge(scope domain.Scope, id uuid.UUID, guardDate *time.Time, fn func(*domain.Installment) (*domain.Transaction, error)) (*domain.Installment, *domain.Transaction, error) {
	stored, err := m.getStored(scope, id)
	if err != nil {
		return nil, nil, err
	}
	if guardDate != nil && m.Transactions != nil {
		exists, err := m.Transactions.ExistsForSource(scope, domain.SourceInstallment, id, *guardDate)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			return nil, nil, domain.ErrAlreadyExists
		}
	}
	next := cloneInstallment(stored)
	tx, err := fn(next)
	if err != nil {
		return nil, nil, err
	}
	created := tx
	if m.Transactions != nil {
		if created, err = m.Transactions.Create(scope, tx); err != nil {
			return nil, nil, err
		}
	}
	m.Installments[id] = next
	return next, created, nil
}

func cloneInstallment(i *domain.Installment) *domain.Installment {
	c := *i
	return &c
}

func (m *MockInstallmentRepository) ListDue(scope domain.Scope, refDate time.Time) ([]*domain.Installment, error) {
	var out []*domain.Installment
	for _, i := range m.Installments {
		if !ScopeMatches(scope, i.UserID, i.OrganizationID) {
			continue
		}
		if i.PaymentsCompleted >= i.NumberOfPayments {
			continue
		}
		if i.StartDate.After(refDate) {
			continue
		}
		due := dayClamped(refDate, int(i.DayOfMonth))
		if due == refDate.Day() {
			out = append(out, cloneInstallment(i))
		}
	}
	return out, nil
}

// MockLoanRepository is a map-backed domain.LoanRepository. Reads hand out
// copies, so a caller's mutation reaches the store only through Update,
// Mutate or Charge, matching the postgres scan-per-call behaviour.
type MockLoanRepository struct {
	Loans        map[uuid.UUID]*domain.Loan
	Transactions *MockTransactionRepository
}

func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{Loans: make(map[uuid.UUID]*domain.Loan)}
}

func (m *MockLoanRepository) Create(scope domain.Scope, loan *domain.Loan) (*domain.Loan, error) {
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	loan.UserID = scope.UserID
	loan.OrganizationID = scope.OrganizationID
	loan.CreatedAt = time.Now()
	m.Loans[loan.ID] = loan
	return loan, nil
}

func (m *MockLoanRepository) getStored(scope domain.Scope, id uuid.UUID) (*domain.Loan, error) {
	if l, ok := m.Loans[id]; ok && ScopeMatches(scope, l.UserID, l.OrganizationID) {
		return l, nil
	}
	return nil, domain.ErrLoanNotFound
}

func (m *MockLoanRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Loan, error) {
	stored, err := m.getStored(scope, id)
	if err != nil {
		return nil, err
	}
	return cloneLoan(stored), nil
}

func (m *MockLoanRepository) List(scope domain.Scope, filter domain.LoanFilter) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for _, l := range m.Loans {
		if !ScopeMatches(scope, l.UserID, l.OrganizationID) {
			continue
		}
		switch filter {
		case domain.LoanFilterActive:
			if l.Status != domain.LoanActive {
				continue
			}
		case domain.LoanFilterCompleted:
			if l.Status != domain.LoanCompleted {
				continue
			}
		}
		out = append(out, cloneLoan(l))
	}
	return out, nil
}

func (m *MockLoanRepository) Update(scope domain.Scope, loan *domain.Loan) (*domain.Loan, error) {
	if _, err := m.GetByID(scope, loan.ID); err != nil {
		return nil, err
	}
	m.Loans[loan.ID] = loan
	return loan, nil
}

func (m *MockLoanRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if _, err := m.GetByID(scope, id); err != nil {
		return err
	}
	delete(m.Loans, id)
	return nil
}

func (m *MockLoanRepository) Mutate(scope domain.Scope, id uuid.UUID, fn func(*domain.Loan) error) (*domain.Loan, error) {
	stored, err := m.getStored(scope, id)
	if err != nil {
		return nil, err
	}
	next := cloneLoan(stored)
	if err := fn(next); err != nil {
		return nil, err
	}
	m.Loans[id] = next
	return next, nil
}

func (m *MockLoanRepository) Charge(scope domain.Scope, id uuid.UUID, guardDate *time.Time, fn func(*domain.Loan) (*domain.Transaction, error)) (*domain.Loan, *domain.Transaction, error) {
	stored, err := m.getStored(scope, id)
	if err != nil {
		return nil, nil, err
	}
	if guardDate != nil && m.Transactions != nil {
		exists, err := m.Transactions.ExistsForSource(scope, domain.SourceLoan, id, *guardDate)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			return nil, nil, domain.ErrAlreadyExists
		}
	}
	next := cloneLoan(stored)
	tx, err := fn(next)
	if err != nil {
		return nil, nil, err
	}
	created := tx
	if m.Transactions != nil {
		if created, err = m.Transactions.Create(scope, tx); err != nil {
			return nil, nil, err
		}
	}
	m.Loans[id] = next
	return next, created, nil
}

func cloneLoan(l *domain.Loan) *domain.Loan {
	c := *l
	return &c
}

func (m *MockLoanRepository) ListDue(scope domain.Scope, refDate time.Time) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for _, l := range m.Loans {
		if !ScopeMatches(scope, l.UserID, l.OrganizationID) {
			continue
		}
		if l.Status != domain.LoanActive || l.PaymentsMade >= l.TotalPayments {
			continue
		}
		if dayClamped(refDate, int(l.DayOfMonth)) == refDate.Day() {
			out = append(out, cloneLoan(l))
		}
	}
	return out, nil
}

func dayClamped(refDate time.Time, day int) int {
	last := time.Date(refDate.Year(), refDate.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// MockBankBalanceRepository is a map-backed domain.BankBalanceRepository.
type MockBankBalanceRepository struct {
	Balances map[uuid.UUID]*domain.BankBalance
}

func NewMockBankBalanceRepository() *MockBankBalanceRepository {
	return &MockBankBalanceRepository{Balances: make(map[uuid.UUID]*domain.BankBalance)}
}

func (m *MockBankBalanceRepository) Create(scope domain.Scope, balance *domain.BankBalance) (*domain.BankBalance, error) {
	for _, b := range m.Balances {
		if ScopeMatches(scope, b.UserID, b.OrganizationID) && b.EffectiveDate.Equal(balance.EffectiveDate) {
			return nil, domain.ErrBalanceDateTaken
		}
	}
	if balance.ID == uuid.Nil {
		balance.ID = uuid.New()
	}
	balance.UserID = scope.UserID
	balance.OrganizationID = scope.OrganizationID
	balance.CreatedAt = time.Now()
	if balance.IsCurrent {
		for _, b := range m.Balances {
			if ScopeMatches(scope, b.UserID, b.OrganizationID) {
				b.IsCurrent = false
			}
		}
	}
	m.Balances[balance.ID] = balance
	return balance, nil
}

func (m *MockBankBalanceRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.BankBalance, error) {
	if b, ok := m.Balances[id]; ok && ScopeMatches(scope, b.UserID, b.OrganizationID) {
		return b, nil
	}
	return nil, domain.ErrBankBalanceNotFound
}

func (m *MockBankBalanceRepository) GetCurrent(scope domain.Scope) (*domain.BankBalance, error) {
	for _, b := range m.Balances {
		if ScopeMatches(scope, b.UserID, b.OrganizationID) && b.IsCurrent {
			return b, nil
		}
	}
	return nil, domain.ErrBankBalanceNotFound
}

func (m *MockBankBalanceRepository) List(scope domain.Scope) ([]*domain.BankBalance, error) {
	var out []*domain.BankBalance
	for _, b := range m.Balances {
		if ScopeMatches(scope, b.UserID, b.OrganizationID) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveDate.After(out[j].EffectiveDate) })
	return out, nil
}

func (m *MockBankBalanceRepository) Update(scope domain.Scope, balance *domain.BankBalance) (*domain.BankBalance, error) {
	if _, err := m.GetByID(scope, balance.ID); err != nil {
		return nil, err
	}
	if balance.IsCurrent {
		for _, b := range m.Balances {
			if b.ID != balance.ID && ScopeMatches(scope, b.UserID, b.OrganizationID) {
				b.IsCurrent = false
			}
		}
	}
	m.Balances[balance.ID] = balance
	return balance, nil
}

func (m *MockBankBalanceRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if _, err := m.GetByID(scope, id); err != nil {
		return err
	}
	delete(m.Balances, id)
	return nil
}

// MockExpectedIncomeRepository is a map-backed domain.ExpectedIncomeRepository.
type MockExpectedIncomeRepository struct {
	Incomes map[uuid.UUID]*domain.ExpectedIncome
}

func NewMockExpectedIncomeRepository() *MockExpectedIncomeRepository {
	return &MockExpectedIncomeRepository{Incomes: make(map[uuid.UUID]*domain.ExpectedIncome)}
}

func (m *MockExpectedIncomeRepository) Upsert(scope domain.Scope, income *domain.ExpectedIncome) (*domain.ExpectedIncome, error) {
	for _, e := range m.Incomes {
		if ScopeMatches(scope, e.UserID, e.OrganizationID) && e.Month.Equal(income.Month) {
			e.ExpectedAmount = income.ExpectedAmount
			e.Notes = income.Notes
			return e, nil
		}
	}
	if income.ID == uuid.Nil {
		income.ID = uuid.New()
	}
	income.UserID = scope.UserID
	income.OrganizationID = scope.OrganizationID
	income.CreatedAt = time.Now()
	m.Incomes[income.ID] = income
	return income, nil
}

func (m *MockExpectedIncomeRepository) GetByMonth(scope domain.Scope, month time.Time) (*domain.ExpectedIncome, error) {
	for _, e := range m.Incomes {
		if ScopeMatches(scope, e.UserID, e.OrganizationID) && e.Month.Equal(month) {
			return e, nil
		}
	}
	return nil, domain.ErrExpectedIncomeNotFound
}

func (m *MockExpectedIncomeRepository) ListRange(scope domain.Scope, start, end time.Time) ([]*domain.ExpectedIncome, error) {
	var out []*domain.ExpectedIncome
	for _, e := range m.Incomes {
		if ScopeMatches(scope, e.UserID, e.OrganizationID) && !e.Month.Before(start) && !e.Month.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockExpectedIncomeRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if e, ok := m.Incomes[id]; ok && ScopeMatches(scope, e.UserID, e.OrganizationID) {
		delete(m.Incomes, id)
		return nil
	}
	return domain.ErrExpectedIncomeNotFound
}

// MockAlertRepository is a map-backed domain.AlertRepository.
type MockAlertRepository struct {
	Alerts map[uuid.UUID]*domain.Alert
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{Alerts: make(map[uuid.UUID]*domain.Alert)}
}

func (m *MockAlertRepository) ListNonDismissed(scope domain.Scope, family domain.AlertFamily) ([]*domain.Alert, error) {
	var out []*domain.Alert
	for _, a := range m.Alerts {
		if ScopeMatches(scope, a.UserID, a.OrganizationID) && !a.IsDismissed && a.AlertType.Family() == family {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAlertRepository) List(scope domain.Scope, unreadOnly bool) ([]*domain.Alert, error) {
	var out []*domain.Alert
	for _, a := range m.Alerts {
		if !ScopeMatches(scope, a.UserID, a.OrganizationID) || a.IsDismissed {
			continue
		}
		if unreadOnly && a.IsRead {
			continue
		}
		out = append(out, a)
	}
	// Dedup key breaks ties so alerts generated in one batch keep a stable
	// order, matching the postgres ORDER BY.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].DedupKey < out[j].DedupKey
	})
	return out, nil
}

func (m *MockAlertRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Alert, error) {
	if a, ok := m.Alerts[id]; ok && ScopeMatches(scope, a.UserID, a.OrganizationID) {
		return a, nil
	}
	return nil, domain.ErrAlertNotFound
}

func (m *MockAlertRepository) Apply(scope domain.Scope, updates, inserts []*domain.Alert, deleteIDs []uuid.UUID) error {
	for _, a := range updates {
		m.Alerts[a.ID] = a
	}
	// One timestamp per batch, the way now() is transaction-stable in postgres.
	now := time.Now()
	for _, a := range inserts {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.UserID = scope.UserID
		a.OrganizationID = scope.OrganizationID
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		m.Alerts[a.ID] = a
	}
	for _, id := range deleteIDs {
		delete(m.Alerts, id)
	}
	return nil
}

func (m *MockAlertRepository) MarkRead(scope domain.Scope, id uuid.UUID) (*domain.Alert, error) {
	a, err := m.GetByID(scope, id)
	if err != nil {
		return nil, err
	}
	a.IsRead = true
	return a, nil
}

func (m *MockAlertRepository) MarkAllRead(scope domain.Scope) (int64, error) {
	var count int64
	for _, a := range m.Alerts {
		if ScopeMatches(scope, a.UserID, a.OrganizationID) && !a.IsRead && !a.IsDismissed {
			a.IsRead = true
			count++
		}
	}
	return count, nil
}

func (m *MockAlertRepository) Dismiss(scope domain.Scope, id uuid.UUID) (*domain.Alert, error) {
	a, err := m.GetByID(scope, id)
	if err != nil {
		return nil, err
	}
	a.IsDismissed = true
	return a, nil
}

// MockSubscriptionRepository is a map-backed domain.SubscriptionRepository.
type MockSubscriptionRepository struct {
	Subscriptions map[uuid.UUID]*domain.Subscription
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{Subscriptions: make(map[uuid.UUID]*domain.Subscription)}
}

func (m *MockSubscriptionRepository) Create(scope domain.Scope, sub *domain.Subscription) (*domain.Subscription, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.UserID = scope.UserID
	sub.OrganizationID = scope.OrganizationID
	sub.CreatedAt = time.Now()
	m.Subscriptions[sub.ID] = sub
	return sub, nil
}

func (m *MockSubscriptionRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Subscription, error) {
	if s, ok := m.Subscriptions[id]; ok && ScopeMatches(scope, s.UserID, s.OrganizationID) {
		return s, nil
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (m *MockSubscriptionRepository) List(scope domain.Scope, activeOnly bool) ([]*domain.Subscription, error) {
	var out []*domain.Subscription
	for _, s := range m.Subscriptions {
		if !ScopeMatches(scope, s.UserID, s.OrganizationID) {
			continue
		}
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MockSubscriptionRepository) Update(scope domain.Scope, sub *domain.Subscription) (*domain.Subscription, error) {
	if _, err := m.GetByID(scope, sub.ID); err != nil {
		return nil, err
	}
	m.Subscriptions[sub.ID] = sub
	return sub, nil
}

func (m *MockSubscriptionRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if _, err := m.GetByID(scope, id); err != nil {
		return err
	}
	delete(m.Subscriptions, id)
	return nil
}

// MockCreditCardRepository is a map-backed domain.CreditCardRepository.
type MockCreditCardRepository struct {
	Cards map[uuid.UUID]*domain.CreditCard
}

func NewMockCreditCardRepository() *MockCreditCardRepository {
	return &MockCreditCardRepository{Cards: make(map[uuid.UUID]*domain.CreditCard)}
}

func (m *MockCreditCardRepository) Create(scope domain.Scope, card *domain.CreditCard) (*domain.CreditCard, error) {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	card.UserID = scope.UserID
	card.OrganizationID = scope.OrganizationID
	card.CreatedAt = time.Now()
	m.Cards[card.ID] = card
	return card, nil
}

func (m *MockCreditCardRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.CreditCard, error) {
	if c, ok := m.Cards[id]; ok && ScopeMatches(scope, c.UserID, c.OrganizationID) {
		return c, nil
	}
	return nil, domain.ErrCreditCardNotFound
}

func (m *MockCreditCardRepository) List(scope domain.Scope, activeOnly bool) ([]*domain.CreditCard, error) {
	var out []*domain.CreditCard
	for _, c := range m.Cards {
		if !ScopeMatches(scope, c.UserID, c.OrganizationID) {
			continue
		}
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *MockCreditCardRepository) Update(scope domain.Scope, card *domain.CreditCard) (*domain.CreditCard, error) {
	if _, err := m.GetByID(scope, card.ID); err != nil {
		return nil, err
	}
	m.Cards[card.ID] = card
	return card, nil
}

func (m *MockCreditCardRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if _, err := m.GetByID(scope, id); err != nil {
		return err
	}
	delete(m.Cards, id)
	return nil
}

// MockApprovalRepository is a map-backed domain.ApprovalRepository.
type MockApprovalRepository struct {
	Approvals    map[uuid.UUID]*domain.ExpenseApproval
	Transactions *MockTransactionRepository
}

func NewMockApprovalRepository(transactions *MockTransactionRepository) *MockApprovalRepository {
	return &MockApprovalRepository{
		Approvals:    make(map[uuid.UUID]*domain.ExpenseApproval),
		Transactions: transactions,
	}
}

func (m *MockApprovalRepository) Create(approval *domain.ExpenseApproval) (*domain.ExpenseApproval, error) {
	if approval.ID == uuid.Nil {
		approval.ID = uuid.New()
	}
	approval.RequestedAt = time.Now()
	m.Approvals[approval.ID] = approval
	return approval, nil
}

func (m *MockApprovalRepository) GetByID(orgID, id uuid.UUID) (*domain.ExpenseApproval, error) {
	if a, ok := m.Approvals[id]; ok && a.OrganizationID == orgID {
		return a, nil
	}
	return nil, domain.ErrApprovalNotFound
}

func (m *MockApprovalRepository) List(orgID uuid.UUID, status *domain.ApprovalStatus) ([]*domain.ExpenseApproval, error) {
	var out []*domain.ExpenseApproval
	for _, a := range m.Approvals {
		if a.OrganizationID != orgID {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *MockApprovalRepository) Resolve(approval *domain.ExpenseApproval, tx *domain.Transaction) (*domain.ExpenseApproval, error) {
	if _, ok := m.Approvals[approval.ID]; !ok {
		return nil, domain.ErrApprovalNotFound
	}
	if tx != nil && m.Transactions != nil {
		created, err := m.Transactions.Create(domain.OrgScope(tx.UserID, approval.OrganizationID), tx)
		if err != nil {
			return nil, err
		}
		approval.TransactionID = &created.ID
	}
	m.Approvals[approval.ID] = approval
	return approval, nil
}

// MockAuditRepository is a map-backed domain.AuditRepository.
type MockAuditRepository struct {
	Entries []*domain.AuditLogEntry
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Append(entry *domain.AuditLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now()
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockAuditRepository) ListByOrganization(orgID uuid.UUID, page, pageSize int32) ([]*domain.AuditLogEntry, int64, error) {
	var matched []*domain.AuditLogEntry
	for _, e := range m.Entries {
		if e.OrganizationID != nil && *e.OrganizationID == orgID {
			matched = append(matched, e)
		}
	}
	total := int64(len(matched))
	start := int((page - 1) * pageSize)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(pageSize)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// MockReportRepository is a map-backed domain.ReportRepository.
type MockReportRepository struct {
	Reports map[uuid.UUID]*domain.Report
}

func NewMockReportRepository() *MockReportRepository {
	return &MockReportRepository{Reports: make(map[uuid.UUID]*domain.Report)}
}

func (m *MockReportRepository) Create(scope domain.Scope, report *domain.Report) (*domain.Report, error) {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.UserID = scope.UserID
	report.OrganizationID = scope.OrganizationID
	report.CreatedAt = time.Now()
	m.Reports[report.ID] = report
	return report, nil
}

func (m *MockReportRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Report, error) {
	if r, ok := m.Reports[id]; ok && ScopeMatches(scope, r.UserID, r.OrganizationID) {
		return r, nil
	}
	return nil, domain.ErrReportNotFound
}

func (m *MockReportRepository) List(scope domain.Scope) ([]*domain.Report, error) {
	var out []*domain.Report
	for _, r := range m.Reports {
		if ScopeMatches(scope, r.UserID, r.OrganizationID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockReportRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	if _, err := m.GetByID(scope, id); err != nil {
		return err
	}
	delete(m.Reports, id)
	return nil
}

// MockReportStore is an in-memory domain.ReportStore.
type MockReportStore struct {
	Objects map[string][]byte
}

func NewMockReportStore() *MockReportStore {
	return &MockReportStore{Objects: make(map[string][]byte)}
}

func (m *MockReportStore) Put(key string, body []byte, contentType string) error {
	m.Objects[key] = body
	return nil
}

func (m *MockReportStore) PresignGet(key string, expires time.Duration) (string, error) {
	if _, ok := m.Objects[key]; !ok {
		return "", domain.ErrReportNotFound
	}
	return "https://storage.test/" + key, nil
}

func (m *MockReportStore) Delete(key string) error {
	delete(m.Objects, key)
	return nil
}

// MockTokenStore is a map-backed domain.TokenStore. FailReads simulates a
// store outage on lookups.
type MockTokenStore struct {
	Revoked   map[string]time.Time
	FailReads bool
}

func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{Revoked: make(map[string]time.Time)}
}

func (m *MockTokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	m.Revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (m *MockTokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.FailReads {
		return false, context.DeadlineExceeded
	}
	expiry, ok := m.Revoked[jti]
	return ok && time.Now().Before(expiry), nil
}
