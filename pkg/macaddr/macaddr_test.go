package macaddr

import "testing"

func TestOUI(t *testing.T) {
	tests := []struct {
		name string
		mac  string
		want string
	}{
		{
			name: "colon separated",
			mac:  "00:11:22:33:44:55",
			want: "00:11:22",
		},
		{
			name: "dash separated",
			mac:  "a4-83-e7-12-34-56",
			want: "a4-83-e7",
		},
		{
			name: "exactly eight characters",
			mac:  "00:11:22",
			want: "00:11:22",
		},
		{
			name: "shorter than eight characters",
			mac:  "00:11",
			want: "00:11",
		},
		{
			name: "empty",
			mac:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OUI(tt.mac)
			if got != tt.want {
				t.Errorf("OUI(%q) = %q, want %q", tt.mac, got, tt.want)
			}
		})
	}
}
