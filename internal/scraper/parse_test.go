package scraper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResultPage = `<html><body>
<div data-component-type="s-search-result" class="s-result-item">
  <h2><a class="a-link-normal s-underline-text s-underline-link-text s-link-style a-text-normal" href="/Acer-Laptop/dp/B0ABC?ref=sr_1_1&keywords=laptop"><span> Acer Aspire 7 </span></a></h2>
  <span class="a-price"><span class="a-price-whole">54,990<span class="a-price-decimal">.</span></span></span>
  <i><span class="a-icon-alt">4.2 out of 5 stars</span></i>
</div>
<div data-component-type="s-search-result" class="s-result-item">
  <a class="a-link-normal s-no-outline" href="/sspa/click?spc=xyz"><img/></a>
  <h2><span>Sponsored Book</span></h2>
</div>
<div data-component-type="s-search-result" class="s-result-item"></div>
<div class="s-result-item">Not a product</div>
</body></html>`

func TestParse_SearchResultLayout(t *testing.T) {
	products, err := Parse(LayoutSearchResult, searchResultPage, "https://www.amazon.in")
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Equal(t, Product{
		Name:   "Acer Aspire 7",
		Price:  "54,990.",
		Rating: "4.2 out of 5 stars",
		Link:   "https://www.amazon.in/Acer-Laptop/dp/B0ABC",
	}, products[0])

	assert.Equal(t, "Sponsored Book", products[1].Name)
	assert.Equal(t, "https://www.amazon.in/sspa/click?spc=xyz", products[1].Link, "non-product links keep their query")
	assert.Equal(t, NA, products[1].Price)
	assert.Equal(t, NA, products[1].Rating)

	assert.Equal(t, Product{Name: NA, Price: NA, Rating: NA, Link: NA}, products[2])
}

func TestParse_ResultItemLayout(t *testing.T) {
	products, err := Parse(LayoutResultItem, searchResultPage, "https://www.amazon.in")
	require.NoError(t, err)
	require.Len(t, products, 4, "every .s-result-item becomes a row")

	assert.Equal(t, "Acer Aspire 7", products[0].Name)
	assert.Equal(t, "54990.", products[0].Price, "commas are removed")
	assert.Equal(t, "https://www.amazon.in/Acer-Laptop/dp/B0ABC?ref=sr_1_1&keywords=laptop", products[0].Link)

	assert.Equal(t, Product{Name: NA, Price: NA, Rating: NA, Link: NA}, products[3])
}

func TestParse_InvalidBaseURL(t *testing.T) {
	_, err := Parse(LayoutSearchResult, "<html></html>", "not a url")
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParse_NoItems(t *testing.T) {
	products, err := Parse(LayoutSearchResult, "<html><body><p>captcha</p></body></html>", "https://www.amazon.in")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestResolveLink(t *testing.T) {
	base, err := url.Parse("https://www.amazon.in")
	require.NoError(t, err)

	tests := []struct {
		href string
		want string
	}{
		{"/Item/dp/B01?tag=x", "https://www.amazon.in/Item/dp/B01"},
		{"/gp/slredirect?x=1", "https://www.amazon.in/gp/slredirect?x=1"},
		{"https://other.example/dp/B02?x", "https://other.example/dp/B02"},
		{"  ", NA},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveLink(base, tt.href), tt.href)
	}
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("")
	require.NoError(t, err)
	assert.Equal(t, LayoutSearchResult, l)

	l, err = ParseLayout("result-item")
	require.NoError(t, err)
	assert.Equal(t, LayoutResultItem, l)

	_, err = ParseLayout("grid")
	assert.Error(t, err)
}
