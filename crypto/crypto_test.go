package crypto

import (
	"strings"
	"testing"

	"github.com/bxcodec/faker/v4"
	"github.com/zond/wizmud"
	"github.com/zond/wizmud/digest"
)

func TestHashPassword(t *testing.T) {
	password := faker.Password()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Errorf("unexpected hash format %q", hash)
	}
	if !VerifyPassword(password, hash) {
		t.Errorf("password should verify")
	}
	if VerifyPassword(password+"x", hash) {
		t.Errorf("wrong password should not verify")
	}
	other, err := HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	if other == hash {
		t.Errorf("hashes should be salted")
	}
}

func TestVerifyPasswordRejectsGarbage(t *testing.T) {
	for _, hash := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	} {
		if VerifyPassword("password", hash) {
			t.Errorf("VerifyPassword accepted %q", hash)
		}
	}
}

func TestCredentials(t *testing.T) {
	hash, ha1, err := Credentials("bob", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword("secret", hash) {
		t.Errorf("password hash should verify")
	}
	if want := digest.ComputeHA1("bob", wizmud.DigestAuthRealm, "secret"); ha1 != want {
		t.Errorf("got HA1 %q, want %q", ha1, want)
	}
}
