package activity

import "testing"

func TestPublishedPort(t *testing.T) {
	containers := []Container{
		{
			ID:   "aaaaaaaaaaaaaaaa",
			Name: "web",
			Ports: []PortMapping{
				{PrivatePort: 80, PublicPort: 8080, Type: "tcp"},
			},
		},
		{
			ID:   "bbbbbbbbbbbbbbbbbbbb",
			Name: "postgres",
			Ports: []PortMapping{
				{IP: "0.0.0.0", PrivatePort: 5432, PublicPort: 55432, Type: "tcp"},
			},
		},
		{
			ID:   "cccccccccccccccc",
			Name: "replica",
			Ports: []PortMapping{
				{IP: "127.0.0.2", PrivatePort: 5432, PublicPort: 6543, Type: "tcp"},
			},
		},
	}

	tests := []struct {
		name     string
		lookup   string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{name: "by name", lookup: "postgres", wantHost: "localhost", wantPort: 55432},
		{name: "by id prefix", lookup: "bbbbbbbbbbbb", wantHost: "localhost", wantPort: 55432},
		{name: "specific bind address", lookup: "replica", wantHost: "127.0.0.2", wantPort: 6543},
		{name: "port not published", lookup: "web", wantErr: true},
		{name: "not running", lookup: "missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := publishedPort(containers, tt.lookup, PostgresPort)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %s:%d", host, port)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got %s:%d, want %s:%d", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}
