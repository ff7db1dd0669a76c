package install

import (
	"strings"
	"testing"
)

func TestRecipesWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Recipes() {
		if r.Key == "" || r.Name == "" {
			t.Errorf("recipe missing key/name: %+v", r)
		}
		if seen[r.Key] {
			t.Errorf("duplicate recipe key %q", r.Key)
		}
		seen[r.Key] = true
		if len(r.Steps) == 0 {
			t.Errorf("recipe %q has no steps", r.Key)
		}
		for _, step := range r.Steps {
			if len(step) == 0 {
				t.Errorf("recipe %q has empty step", r.Key)
			}
		}
	}
	for _, key := range []string{"nginx", "certbot", "mysql", "docker", "node"} {
		if !seen[key] {
			t.Errorf("missing recipe %q", key)
		}
	}
}

func TestPHPRecipe(t *testing.T) {
	r := PHPRecipe("8.3")
	if r.Key != "php8.3" || r.CheckCmd != "php8.3" {
		t.Errorf("recipe = %+v", r)
	}

	var joined []string
	for _, s := range r.Steps {
		joined = append(joined, strings.Join(s, " "))
	}
	all := strings.Join(joined, "\n")

	if !strings.Contains(all, "ppa:ondrej/php") {
		t.Error("missing ondrej PPA step")
	}
	if !strings.Contains(all, "php8.3-fpm") {
		t.Error("missing fpm package/unit")
	}
	for _, ext := range []string{"php8.3-mbstring", "php8.3-opcache", "php8.3-redis"} {
		if !strings.Contains(all, ext) {
			t.Errorf("missing extension package %s", ext)
		}
	}
}
