package auth

import (
	"context"
	"errors"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
	"github.com/coaxwatch/coaxwatch/pkg/hnap"
)

// hnapStrategy runs the two-phase HNAP challenge-response login. The computed
// private key stays cached on the session for authenticated calls until the
// orchestrator clears it.
type hnapStrategy struct{}

func (hnapStrategy) Kind() StrategyKind { return StrategyHNAP }

func (hnapStrategy) Login(ctx context.Context, sess *httpclient.Session, baseURL string, creds Credentials, desc *StrategyDescriptor) AuthResult {
	if creds.Password == "" {
		return Fail(KindMissingCredentials, "HNAP login requires a password")
	}

	spec := &HNAPSpec{}
	if desc != nil && desc.HNAP != nil {
		spec = desc.HNAP
	}
	alg, err := hnap.ParseAlgorithm(spec.Algorithm)
	if err != nil {
		return Fail(KindUnknownAuthPattern, err.Error())
	}

	username := creds.Username
	if username == "" {
		username = "admin"
	}

	client := hnap.NewClient(sess, baseURL, spec.Endpoint, spec.Namespace, alg)
	if err := client.Login(ctx, username, creds.Password); err != nil {
		var rejected *hnap.LoginRejectedError
		if errors.As(err, &rejected) {
			return Fail(KindInvalidCredentials, rejected.Error())
		}
		return connectionFail(err)
	}
	return Ok()
}
