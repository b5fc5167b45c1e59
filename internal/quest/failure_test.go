package quest

import (
	"errors"
	"fmt"
	"testing"
)

func TestFailureCodes(t *testing.T) {
	notFound := NotFound("quest %s", "hunt")
	if !IsCode(notFound, FailNotFound) {
		t.Error("NotFound not classified as not_found")
	}
	if IsCode(notFound, FailPrecondition) {
		t.Error("NotFound misclassified as precondition failure")
	}

	wrapped := fmt.Errorf("dispatch: %w", Precondition("bad party"))
	if !IsCode(wrapped, FailPrecondition) {
		t.Error("IsCode does not see through wrapping")
	}

	if IsCode(errors.New("plain"), FailNotFound) {
		t.Error("plain error classified as a failure")
	}
	if IsCode(nil, FailNotFound) {
		t.Error("nil error classified as a failure")
	}
}

func TestPersistenceFailedUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := PersistenceFailed(cause)
	if !errors.Is(err, cause) {
		t.Error("persistence failure does not unwrap to its cause")
	}
	f, ok := AsFailure(err)
	if !ok || f.Code != FailPersistence {
		t.Errorf("AsFailure = %+v, %v", f, ok)
	}
}
