package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// OrganizationHandler handles organization related HTTP requests
type OrganizationHandler struct {
	orgService *service.OrganizationService
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(orgService *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// CreateOrganizationRequest is the JSON request for creating an organization
type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

// UpdateOrganizationRequest is the JSON request for renaming an organization
type UpdateOrganizationRequest struct {
	Name string `json:"name"`
}

// MemberRequest is the JSON request for adding a member or changing a role
type MemberRequest struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role"`
}

// SwitchRequest is the JSON request for switching the active context.
// A null organizationId returns to the personal space.
type SwitchRequest struct {
	OrganizationID *uuid.UUID `json:"organizationId"`
}

// Create creates a new organization owned by the caller
// @Summary Create organization
// @Tags organizations
// @Security BearerAuth
// @Router /organizations [post]
func (h *OrganizationHandler) Create(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	org, err := h.orgService.CreateOrganization(dc.UserID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
			return NewValidationError(c, "Invalid organization name")
		case errors.Is(err, domain.ErrOrganizationNameTaken):
			return NewConflictError(c, "Organization name is already taken")
		}
		log.Error().Err(err).Msg("Failed to create organization")
		return NewInternalError(c, "Failed to create organization")
	}

	return c.JSON(http.StatusCreated, org)
}

// List lists the caller's organizations
// @Summary List organizations
// @Tags organizations
// @Security BearerAuth
// @Router /organizations [get]
func (h *OrganizationHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	orgs, err := h.orgService.ListOrganizations(dc.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list organizations")
		return NewInternalError(c, "Failed to list organizations")
	}
	return c.JSON(http.StatusOK, orgs)
}

// Get retrieves one organization the caller belongs to
// @Summary Get organization
// @Tags organizations
// @Security BearerAuth
// @Router /organizations/{id} [get]
func (h *OrganizationHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	orgID, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid organization ID", "path", "id")
	}

	org, err := h.orgService.GetOrganization(dc.UserID, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrOrganizationNotFound) || errors.Is(err, domain.ErrMemberNotFound) {
			return NewNotFoundError(c, "Organization not found")
		}
		log.Error().Err(err).Msg("Failed to get organization")
		return NewInternalError(c, "Failed to get organization")
	}
	return c.JSON(http.StatusOK, org)
}

// Update renames an organization
// @Summary Update organization
// @Tags organizations
// @Security BearerAuth
// @Router /organizations/{id} [put]
func (h *OrganizationHandler) Update(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	orgID, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid organization ID", "path", "id")
	}

	var req UpdateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	org, err := h.orgService.UpdateOrganization(dc, orgID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			return NewForbiddenError(c, "Insufficient role")
		case errors.Is(err, domain.ErrOrganizationNotFound):
			return NewNotFoundError(c, "Organization not found")
		case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
			return NewValidationError(c, "Invalid organization name")
		case errors.Is(err, domain.ErrOrganizationNameTaken):
			return NewConflictError(c, "Organization name is already taken")
		}
		log.Error().Err(err).Msg("Failed to update organization")
		return NewInternalError(c, "Failed to update organization")
	}
	return c.JSON(http.StatusOK, org)
}

// Delete deletes an organization. Owner only.
// @Summary Delete organization
// @Tags organizations
// @Security BearerAuth
// @Router /organizations/{id} [delete]
func (h *OrganizationHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	orgID, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid organization ID", "path", "id")
	}

	if err := h.orgService.DeleteOrganization(dc, orgID); err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			return NewForbiddenError(c, "Only the owner can delete an organization")
		case errors.Is(err, domain.ErrOrganizationNotFound):
			return NewNotFoundError(c, "Organization not found")
		}
		log.Error().Err(err).Msg("Failed to delete organization")
		return NewInternalError(c, "Failed to delete organization")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMembers lists an organization's members
// @Summary List members
// @Tags organizations
// @Security BearerAuth
// @Router /organizations/{id}/members [get]
func (h *OrganizationHandler) ListMembers(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	orgID, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid organization ID", "path", "id")
	}

	members, err := h.orgService.ListMembers(dc.UserID, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return NewNotFoundError(c, "Organization not found")
		}
		log.Error().Err(err).Msg("Failed to list members")
		return NewInternalError(c, "Failed to list members")
	}
	return c.JSON(http.StatusOK, members)
}

// AddMember adds a user to an organization. Admin or owner only.
// @Summary Add member
// @Tags organizations
// @Security BearerAuth
// @Router /organizations/{id}/members [post]
func (h *OrganizationHandler) AddMember(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	orgID, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid organization ID", "path", "id")
	}

	var req MemberRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	member, err := h.orgService.AddMember(dc, orgID, req.UserID, domain.OrgRole(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			return NewForbiddenError(c, "Insufficient role")
		case errors.Is(err, domain.ErrRoleInvalid):
			return NewValidationError(c, "Invalid role")
		case errors.Is(err, domain.ErrUserNotFound):
			return NewNotFoundError(c, "User not found")
		case errors.Is(err, domain.ErrMemberAlreadyExists):
			return NewConflictError(c, "User is already a member")
		}
		log.Error().Err(err).Msg("Failed to add member")
		return NewInternalError(c, "Failed to add member")
	}
	return c.JSON(http.StatusCreated, member)
}

// UpdateMemberRole changes a member's role
// @Summary Change member role
// @Tags organizations
// @Security BearerAuth
// @Router /organizations/{id}/members/{userId} [put]
func (h *OrganizationHandler) UpdateMemberRole(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	orgID, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid organization ID", "path", "id")
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return schemaError(c, "Invalid user ID", "path", "userId")
	}

	var req MemberRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	member, err := h.orgService.ChangeMemberRole(dc, orgID, userID, domain.OrgRole(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			return NewForbiddenError(c, "Insufficient role")
		case errors.Is(err, domain.ErrCannotChangeOwnRole):
			return NewConflictError(c, "Cannot change your own role")
		case errors.Is(err, domain.ErrRoleInvalid):
			return NewValidationError(c, "Invalid role")
		case errors.Is(err, domain.ErrMemberNotFound):
			return NewNotFoundError(c, "Member not found")
		}
		log.Error().Err(err).Msg("Failed to change member role")
		return NewInternalError(c, "Failed to change member role")
	}
	return c.JSON(http.StatusOK, member)
}

// RemoveMember removes a member from an organization
// @Summary Remove member
// @Tags organizations
// @Security BearerAuth
// @Router /organizations/{id}/members/{userId} [delete]
func (h *OrganizationHandler) RemoveMember(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	orgID, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid organization ID", "path", "id")
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return schemaError(c, "Invalid user ID", "path", "userId")
	}

	if err := h.orgService.RemoveMember(dc, orgID, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrCannotRemoveMember):
			return NewForbiddenError(c, "Cannot remove this member")
		case errors.Is(err, domain.ErrOwnerCannotLeave):
			return NewConflictError(c, "The owner cannot leave the organization")
		case errors.Is(err, domain.ErrMemberNotFound):
			return NewNotFoundError(c, "Member not found")
		}
		log.Error().Err(err).Msg("Failed to remove member")
		return NewInternalError(c, "Failed to remove member")
	}
	return c.NoContent(http.StatusNoContent)
}

// Switch moves the caller's active context between personal and organization
// @Summary Switch active context
// @Tags organizations
// @Security BearerAuth
// @Router /organizations/switch [post]
func (h *OrganizationHandler) Switch(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req SwitchRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	if err := h.orgService.SwitchOrganization(dc.UserID, req.OrganizationID); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) || errors.Is(err, domain.ErrOrganizationNotFound) {
			return NewForbiddenError(c, "Not a member of that organization")
		}
		log.Error().Err(err).Msg("Failed to switch organization")
		return NewInternalError(c, "Failed to switch organization")
	}
	return c.NoContent(http.StatusNoContent)
}
