package codec

import "testing"

func TestEncodeReadCRC(t *testing.T) {
	got, err := Request{Kind: Read, Addr: 0x01, Sub: 0x07, CRC: true}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	const want = "r01077\n"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeNoCRCUsesSentinel(t *testing.T) {
	got, err := Request{Kind: Read, Addr: 0x01, Sub: 0x07, CRC: false}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	const want = "r01070\n"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestDecodeOK(t *testing.T) {
	resp, err := Decode("002a3\n")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Data != 42 {
		t.Errorf("Data = %d, want 42", resp.Data)
	}
	if !resp.CRCOK {
		t.Error("CRCOK = false, want true")
	}
}

func TestDecodeBadCRCStillReturnsValue(t *testing.T) {
	resp, err := Decode("002a0\n")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Data != 42 {
		t.Errorf("Data = %d, want 42", resp.Data)
	}
	if resp.CRCOK {
		t.Error("CRCOK = true, want false")
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []string{
		"",
		"002a3",     // missing newline
		"02a3\n",    // too short
		"0002a3\n",  // too long
		"00zz3\n",   // non-hex
	}
	for _, c := range cases {
		if _, err := Decode(c); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", c)
		}
	}
}

func TestEncodeResponseDecodesOK(t *testing.T) {
	for _, data := range []uint16{0, 42, 0x1234, 0xffff} {
		line := EncodeResponse(data)
		resp, err := Decode(line)
		if err != nil {
			t.Fatalf("Decode(EncodeResponse(%#x)) = _, %v", data, err)
		}
		if resp.Data != data {
			t.Errorf("Data = %#x, want %#x", resp.Data, data)
		}
		if !resp.CRCOK {
			t.Errorf("CRCOK = false, want true for data %#x", data)
		}
	}
}

func TestDecodeEncodeResponseStable(t *testing.T) {
	// Property: decoding a line produced by EncodeResponse and re-encoding
	// that decoded value reproduces the same line.
	for _, data := range []uint16{0, 7, 0x0abc, 0xffff} {
		line := EncodeResponse(data)
		resp, err := Decode(line)
		if err != nil {
			t.Fatal(err)
		}
		if again := EncodeResponse(resp.Data); again != line {
			t.Errorf("EncodeResponse(Decode(%q).Data) = %q, want %q", line, again, line)
		}
	}
}

func TestCRCZeroAfterAppendingNibble(t *testing.T) {
	for _, payload := range []string{"0107", "0000", "ffff", "a1b2"} {
		n, err := crcNibble(payload)
		if err != nil {
			t.Fatal(err)
		}
		full := payload + string(hexDigit(n))
		sum := 0
		for i := 0; i < len(full); i++ {
			v, _ := hexValue(full[i])
			sum += v
		}
		if (sum^0xf)&0xf != 0 {
			t.Errorf("payload %q: crc(payload+nibble) != 0", payload)
		}
	}
}
