package authz

import (
	"context"

	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/record"
)

// TokenVerifier resolves a bearer token string into a caller identity. The
// auth package implements it; the indirection keeps authz free of JWT and
// revocation-table concerns.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (userID int64, group Group, err error)
}

// Access is one authorized operation moving through the linear pipeline
// Unauthenticated -> TokenVerified -> InstanceChecked -> FieldsFiltered.
// Open performs the first three states; Filter performs the last, once per
// record. A failure at any state aborts the whole operation.
type Access struct {
	desired Mask
	params  Params
	matrix  *Matrix
}

// Open verifies the caller and checks instance-level permissions for the
// desired operation against the schema's permission matrix.
//
// With no token the caller stays in the group given by params, which
// defaults to the lowest-privilege "other" tier. A token that fails
// verification is a hard authentication failure, never a silent downgrade.
//
// The instance check passes if either the caller's group holds the desired
// bits, or the owner tier holds them and the caller is owner-eligible
// (known user id plus a declared owner field). Whichever tier did not
// grant access is stripped from the effective params so field filtering
// applies the right tier.
func Open(ctx context.Context, verifier TokenVerifier, matrices *MatrixLoader, desired Mask, token string, params Params, schema *record.Schema) (*Access, error) {
	if token != "" {
		userID, group, err := verifier.Verify(ctx, token)
		if err != nil {
			return nil, err
		}
		params.Group = group
		params.UserID = &userID
	}

	matrix, err := matrices.Load(ctx, schema)
	if err != nil {
		return nil, err
	}

	haveGroup := matrix.Instance(params.Group).Has(desired)
	haveOwner := params.ownerEligible() && matrix.Instance(GroupOwner).Has(desired)

	if !haveGroup && !haveOwner {
		return nil, apierr.Unauthorized(desired.String())
	}
	if !haveGroup {
		params = params.WithoutGroup()
	}
	if !haveOwner {
		params = params.WithoutOwner()
	}

	return &Access{desired: desired, params: params, matrix: matrix}, nil
}

// Params returns the effective params after instance-tier downgrades.
func (a *Access) Params() Params { return a.params }

// Filter redacts every field of rec whose effective mask lacks the desired
// operation's bit, mutating rec in place. The effective mask per field is
// the caller's group mask, OR-ed with the owner mask when this specific
// record's owner field equals the caller's id. A record with every field
// redacted is an authorization failure, not an empty success.
func (a *Access) Filter(rec *record.Record) error {
	schema := rec.Schema()
	perms := make([]Mask, schema.Len())
	for i := range perms {
		perms[i] = a.matrix.FieldAt(a.params.Group, i)
	}

	if a.params.ownerEligible() {
		if ownerID, ok := rec.Int(a.params.OwnerField); ok && ownerID == *a.params.UserID {
			for i := range perms {
				perms[i] |= a.matrix.FieldAt(GroupOwner, i)
			}
		}
	}

	erased := 0
	for i := range perms {
		if !perms[i].Has(a.desired) {
			rec.EraseAt(i)
			erased++
		}
	}
	if erased == schema.Len() {
		return apierr.Unauthorized(a.desired.String())
	}
	return nil
}
