/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package oidc4vci

import "fmt"

func validateStateTransition(oldState, newState FlowState) error {
	if newState == FlowStateFailed {
		return nil // every state may fail
	}

	if oldState == FlowStateIdle &&
		newState == FlowStateMetadataFetched {
		return nil
	}

	if oldState == FlowStateMetadataFetched &&
		newState == FlowStateParSubmitted {
		return nil
	}

	if oldState == FlowStateParSubmitted &&
		newState == FlowStateAwaitingUserAuthorization {
		return nil
	}

	if oldState == FlowStateAwaitingUserAuthorization &&
		newState == FlowStateTokenExchanged {
		return nil
	}

	if oldState == FlowStateTokenExchanged &&
		newState == FlowStateProofGenerated {
		return nil
	}

	if oldState == FlowStateProofGenerated &&
		newState == FlowStateCredentialRequested {
		return nil
	}

	if oldState == FlowStateCredentialRequested &&
		newState == FlowStateStored {
		return nil
	}

	return fmt.Errorf("unexpected issuance state transition from %v to %v", oldState, newState)
}
