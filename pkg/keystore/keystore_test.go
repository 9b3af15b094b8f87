package keystore

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestEncryptDecryptMnemonic(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	password := "secure-password"

	keyJSON, err := EncryptMnemonicWithN(mnemonic, password, LightScryptN)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}

	if keyJSON.Crypto.Cipher != "aes-256-gcm" {
		t.Errorf("Expected cipher aes-256-gcm, got %s", keyJSON.Crypto.Cipher)
	}
	if _, err := uuid.Parse(keyJSON.Id); err != nil {
		t.Errorf("Id 不是合法 UUID: %s", keyJSON.Id)
	}

	plaintext, err := DecryptMnemonic(keyJSON, password)
	if err != nil {
		t.Fatalf("Decryption failed: %v", err)
	}
	if plaintext != mnemonic {
		t.Errorf("Decryption mismatch. Expected %s, got %s", mnemonic, plaintext)
	}

	_, err = DecryptMnemonic(keyJSON, "wrong-password")
	if err != ErrMACMismatch {
		t.Errorf("Expected ErrMACMismatch with wrong password, got %v", err)
	}
}

func TestFileSaveLoad(t *testing.T) {
	mnemonic := "test mnemonic"
	password := "123456"
	filename := filepath.Join(t.TempDir(), "test_wallet.json")

	keyJSON, err := EncryptMnemonicWithN(mnemonic, password, LightScryptN)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}
	keyJSON.Address = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

	if err := keyJSON.SaveToFile(filename); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loadedJSON, err := LoadFromFile(filename)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if loadedJSON.Id != keyJSON.Id || loadedJSON.Address != keyJSON.Address {
		t.Errorf("ID/Address mismatch after load")
	}

	decrypted, err := DecryptMnemonic(loadedJSON, password)
	if err != nil {
		t.Fatalf("Decrypt loaded failed: %v", err)
	}
	if decrypted != mnemonic {
		t.Errorf("Content mismatch")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	keyJSON, err := EncryptMnemonicWithN("some words", "pw", LightScryptN)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}
	ct := []byte(keyJSON.Crypto.CipherText)
	if ct[0] == 'a' {
		ct[0] = 'b'
	} else {
		ct[0] = 'a'
	}
	keyJSON.Crypto.CipherText = string(ct)

	if _, err := DecryptMnemonic(keyJSON, "pw"); err != ErrMACMismatch {
		t.Errorf("篡改密文后应返回 ErrMACMismatch, got %v", err)
	}
}
