package browser_test

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// fakeSession renders a page that depends on how many times it was scrolled.
type fakeSession struct {
	page      func(scrolls int) string
	height    func(scrolls int) int64
	scrolls   int
	navigated []string
	waitErr   error
	clickErr  error
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeSession) HTML(context.Context) (string, error) {
	return "<html><body>" + f.page(f.scrolls) + "</body></html>", nil
}

func (f *fakeSession) Eval(_ context.Context, script string, out any) error {
	switch {
	case strings.Contains(script, "scrollTo(") || strings.Contains(script, "scrollTop ="):
		f.scrolls++
		if b, ok := out.(*bool); ok {
			*b = true
		}
	case strings.Contains(script, "scrollHeight"):
		p, ok := out.(*int64)
		if !ok {
			return fmt.Errorf("unexpected out %T", out)
		}
		if f.height != nil {
			*p = f.height(f.scrolls)
		}
	}
	return nil
}

func (f *fakeSession) WaitVisible(context.Context, string, time.Duration) error { return f.waitErr }

func (f *fakeSession) Click(context.Context, string, time.Duration) error { return f.clickErr }

func (f *fakeSession) Close() error { return nil }

func listingHTML(i int) string {
	return fmt.Sprintf(`<div class="Nv2PK"><a class="hfpxzc" href="https://www.google.com/maps/place/p%d"></a>`+
		`<div class="qBF1Pd">Place %d</div><span class="MW4etd">4,5</span><span class="UY7F9">(1,234)</span></div>`, i, i)
}

func reviewHTML(i int) string {
	return fmt.Sprintf(`<div class="jftiEf"><div class="d4r55">Author %d</div><span class="rsqaWe">%d weeks ago</span>`+
		`<span class="wiI7pd">Review text %d</span><span class="kvMYJc" aria-label="%d stars"></span></div>`, i, i, i, i%5+1)
}

func feedOf(counts ...int) func(int) string {
	return func(scrolls int) string {
		n := counts[min(scrolls, len(counts)-1)]
		var b strings.Builder
		b.WriteString(`<div role="feed">`)
		for i := 0; i < n; i++ {
			b.WriteString(listingHTML(i))
		}
		b.WriteString(`</div>`)
		return b.String()
	}
}
