package auth

import "testing"

const (
	testMemory      = 19 * 1024
	testIterations  = 2
	testParallelism = 1
	testSaltLen     = 16
	testKeyLen      = 32
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("hunter2hunter2", testMemory, testIterations, testParallelism, testSaltLen, testKeyLen)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	ok, err := VerifyPassword("hunter2hunter2", hash)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword() = %v, %v, want true, nil", ok, err)
	}

	ok, err = VerifyPassword("wrongpassword", hash)
	if err != nil || ok {
		t.Fatalf("VerifyPassword() wrong password = %v, %v, want false, nil", ok, err)
	}
}

func TestNeedsRehash(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("hunter2hunter2", testMemory, testIterations, testParallelism, testSaltLen, testKeyLen)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if NeedsRehash(hash, testMemory, testIterations, testParallelism, testSaltLen, testKeyLen) {
		t.Error("NeedsRehash() = true for unchanged parameters, want false")
	}
	if !NeedsRehash(hash, testMemory*2, testIterations, testParallelism, testSaltLen, testKeyLen) {
		t.Error("NeedsRehash() = false for doubled memory cost, want true")
	}
}
