// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

// Package deferral implements the signed-token transport for joins
// that require delegated approval: a deferrer hands a join off to one
// or more assignees via a token; an assignee picks it up and re-runs
// the pipeline as the approver (spec §4.7).
package deferral

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/join"
)

// Payload is the deferral token's contents (spec §4.7, §6 "Deferral
// token").
type Payload struct {
	// Assignees is the sorted list of user identifiers allowed to pick
	// up this deferral.
	Assignees []string
	// GroupID is the target group's canonical "env.system.name" string.
	GroupID string
	// Deferrer is the requesting user.
	Deferrer string
	// Input is the input-property name → serialized string map bound
	// at defer time; properties with no supplied value are omitted.
	Input map[string]string
}

// claims is the JWT wire representation of Payload.
type claims struct {
	jwt.RegisteredClaims
	Group string            `json:"grp"`
	User  string            `json:"usr"`
	Input map[string]string `json:"inp,omitempty"`
}

// TokenSigner is the external signing collaborator (spec §6 "Token
// signer: sign(payload) -> (token, expiry)").
type TokenSigner interface {
	Sign(payload Payload) (token string, expiry time.Time, err error)
}

// TokenVerifier is the external verification collaborator (spec §6
// "verify(token) -> payload"). Signature failure is reported as
// jiterrors.ErrTokenVerification, distinct from access denial.
type TokenVerifier interface {
	Verify(token string) (Payload, error)
}

// JWTCodec implements TokenSigner and TokenVerifier via
// github.com/golang-jwt/jwt/v5, carrying the assignees in the
// RegisteredClaims audience and accepting only the configured signing
// method on verification.
type JWTCodec struct {
	method   jwt.SigningMethod
	key      any
	verifyKey any
	validity time.Duration
}

// NewJWTCodec builds a JWTCodec. signKey/verifyKey follow golang-jwt's
// conventions (matching []byte for HMAC, or a key pair for RSA/ECDSA);
// validity bounds how long a minted token remains pickup-able.
func NewJWTCodec(method jwt.SigningMethod, signKey, verifyKey any, validity time.Duration) *JWTCodec {
	return &JWTCodec{method: method, key: signKey, verifyKey: verifyKey, validity: validity}
}

func (c *JWTCodec) Sign(payload Payload) (string, time.Time, error) {
	if len(payload.Assignees) == 0 {
		return "", time.Time{}, fmt.Errorf("deferral requires at least one assignee")
	}
	assignees := append([]string(nil), payload.Assignees...)
	sort.Strings(assignees)

	expiry := time.Now().Add(c.validity)
	token := jwt.NewWithClaims(c.method, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  assignees,
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Group: payload.GroupID,
		User:  payload.Deferrer,
		Input: payload.Input,
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing deferral token: %w", err)
	}
	return signed, expiry, nil
}

func (c *JWTCodec) Verify(tokenString string) (Payload, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(*jwt.Token) (any, error) {
		return c.verifyKey, nil
	}, jwt.WithValidMethods([]string{c.method.Alg()}))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", jiterrors.ErrTokenVerification, err)
	}

	return Payload{
		Assignees: parsed.Audience,
		GroupID:   parsed.Group,
		Deferrer:  parsed.User,
		Input:     parsed.Input,
	}, nil
}

// Defer mints a deferral token for op, valid for the operation's
// currently bound inputs and the given assignees (spec §4.7
// "defer(joinOp, assignees)").
func Defer(op *join.Operation, assignees []string, signer TokenSigner) (token string, expiry time.Time, err error) {
	if len(assignees) == 0 {
		return "", time.Time{}, fmt.Errorf("defer requires at least one assignee")
	}
	switch op.State() {
	case join.ApprovalRequired:
		if err := op.DelegateForApproval(); err != nil {
			return "", time.Time{}, err
		}
	case join.Deferred:
	default:
		return "", time.Time{}, jiterrors.ErrUnsupported
	}

	payload := Payload{
		Assignees: assignees,
		GroupID:   op.View().ID().String(),
		Deferrer:  op.View().Subject().User().Email(),
		Input:     op.Inputs(),
	}
	return signer.Sign(payload)
}

// Deferral is the view over a picked-up token's contents, bound to
// whichever assignee presented it.
type Deferral struct {
	Deferrer  string
	Assignees []string
	Input     map[string]string
	GroupID   string
}

// Pickup verifies token and returns a Deferral view over its contents
// (spec §4.7 "pickup(token)"). Signature failure returns
// jiterrors.ErrTokenVerification and must not be mistaken for access
// denial.
func Pickup(token string, verifier TokenVerifier) (Deferral, error) {
	payload, err := verifier.Verify(token)
	if err != nil {
		if errors.Is(err, jiterrors.ErrTokenVerification) {
			return Deferral{}, err
		}
		return Deferral{}, fmt.Errorf("%w: %w", jiterrors.ErrTokenVerification, err)
	}
	return Deferral{
		Deferrer:  payload.Deferrer,
		Assignees: payload.Assignees,
		Input:     payload.Input,
		GroupID:   payload.GroupID,
	}, nil
}
