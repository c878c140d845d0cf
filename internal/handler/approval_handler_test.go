package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/service"
	"github.com/tazrim/tazrim-backend/internal/testutil"
)

type approvalHandlerFixture struct {
	e       *echo.Echo
	orgID   uuid.UUID
	handler *ApprovalHandler
}

func newApprovalHandlerFixture() *approvalHandlerFixture {
	transactions := testutil.NewMockTransactionRepository()
	approvals := testutil.NewMockApprovalRepository(transactions)
	currencies := service.NewCurrencyService("ILS", nil)
	svc := service.NewApprovalService(approvals, testutil.NewMockCategoryRepository(), currencies)
	return &approvalHandlerFixture{
		e:       echo.New(),
		orgID:   uuid.New(),
		handler: NewApprovalHandler(svc),
	}
}

func (f *approvalHandlerFixture) memberContext(role domain.OrgRole) domain.DataContext {
	return domain.DataContext{UserID: uuid.New(), OrganizationID: &f.orgID, Role: role}
}

func (f *approvalHandlerFixture) request(dc domain.DataContext, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	c.Set("dataContext", dc)
	return c, rec
}

func (f *approvalHandlerFixture) submit(t *testing.T, dc domain.DataContext) domain.ExpenseApproval {
	c, rec := f.request(dc, http.MethodPost, "/api/v1/approvals",
		`{"amount":"1800","currency":"ILS","description":"Team offsite catering"}`)
	require.NoError(t, f.handler.Submit(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var approval domain.ExpenseApproval
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approval))
	return approval
}

func TestApprovalSubmitAndApprove(t *testing.T) {
	f := newApprovalHandlerFixture()
	member := f.memberContext(domain.RoleMember)
	admin := f.memberContext(domain.RoleAdmin)

	approval := f.submit(t, member)
	assert.Equal(t, domain.ApprovalPending, approval.Status)

	c, rec := f.request(admin, http.MethodPost, "/api/v1/approvals/"+approval.ID.String()+"/approve", "")
	c.SetParamNames("id")
	c.SetParamValues(approval.ID.String())
	require.NoError(t, f.handler.Approve(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resolved domain.ExpenseApproval
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.Equal(t, domain.ApprovalApproved, resolved.Status)
	assert.NotNil(t, resolved.TransactionID)
}

func TestApprovalApproveRequiresAdminRole(t *testing.T) {
	f := newApprovalHandlerFixture()
	member := f.memberContext(domain.RoleMember)

	approval := f.submit(t, member)

	c, rec := f.request(member, http.MethodPost, "/api/v1/approvals/"+approval.ID.String()+"/approve", "")
	c.SetParamNames("id")
	c.SetParamValues(approval.ID.String())
	require.NoError(t, f.handler.Approve(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApprovalRejectNeedsReason(t *testing.T) {
	f := newApprovalHandlerFixture()
	admin := f.memberContext(domain.RoleAdmin)

	approval := f.submit(t, admin)

	c, rec := f.request(admin, http.MethodPost, "/api/v1/approvals/"+approval.ID.String()+"/reject", `{"reason":""}`)
	c.SetParamNames("id")
	c.SetParamValues(approval.ID.String())
	require.NoError(t, f.handler.Reject(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = f.request(admin, http.MethodPost, "/api/v1/approvals/"+approval.ID.String()+"/reject", `{"reason":"Over budget"}`)
	c.SetParamNames("id")
	c.SetParamValues(approval.ID.String())
	require.NoError(t, f.handler.Reject(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resolved domain.ExpenseApproval
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.Equal(t, domain.ApprovalRejected, resolved.Status)
}

func TestApprovalListForbiddenOutsideOrg(t *testing.T) {
	f := newApprovalHandlerFixture()
	personal := domain.DataContext{UserID: uuid.New()}

	c, rec := f.request(personal, http.MethodGet, "/api/v1/approvals", "")
	require.NoError(t, f.handler.List(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApprovalListStatusFilter(t *testing.T) {
	f := newApprovalHandlerFixture()
	member := f.memberContext(domain.RoleMember)

	f.submit(t, member)

	c, rec := f.request(member, http.MethodGet, "/api/v1/approvals?status=bogus", "")
	require.NoError(t, f.handler.List(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	c, rec = f.request(member, http.MethodGet, "/api/v1/approvals?status=pending", "")
	require.NoError(t, f.handler.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var approvals []domain.ExpenseApproval
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approvals))
	assert.Len(t, approvals, 1)
}
