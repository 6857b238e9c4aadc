package scraper

import "github.com/resume-rag/jobscraper/internal/browser"

// Page scripts. Each receives the Selectors as args[0].
var (
	scriptContainer = browser.Script{Name: "containerExists", Body: `
return document.querySelector(args[0].container) !== null;`}

	scriptCountCards = browser.Script{Name: "countCards", Body: `
return document.querySelectorAll(args[0].jobs).length;`}

	scriptTotalResults = browser.Script{Name: "totalResults", Body: `
const s = args[0];
const el = s.totalResults ? document.querySelector(s.totalResults) : null;
return el ? (el.innerText || '').trim() : '';`}

	// args[1] is the card index. Extraction and click happen in one call so the
	// detail pane always belongs to the card read.
	scriptPrimary = browser.Script{Name: "primaryFields", Body: `
const s = args[0];
const card = document.querySelectorAll(s.jobs)[args[1]];
if (!card) {
  return { found: false };
}
const text = (sel) => {
  const el = sel ? card.querySelector(sel) : null;
  return el ? (el.innerText || '').trim() : '';
};
const attr = (sel, name) => {
  const el = sel ? card.querySelector(sel) : null;
  return el ? (el.getAttribute(name) || '') : '';
};
const abs = (href) => href ? new URL(href, window.location.href).href : '';
let jobId = card.getAttribute(s.jobIdAttr) || '';
if (!jobId) {
  const holder = card.querySelector('[' + s.jobIdAttr + ']');
  jobId = holder ? holder.getAttribute(s.jobIdAttr) : '';
}
const link = s.link ? card.querySelector(s.link) : null;
const out = {
  found: true,
  jobId: jobId,
  title: text(s.title) || (link ? (link.innerText || '').trim() : ''),
  company: text(s.company),
  companyLink: abs(attr(s.companyLink, 'href')),
  companyImgLink: attr(s.companyImg, 'src'),
  place: text(s.place),
  date: attr(s.date, 'datetime'),
  link: link ? abs(link.getAttribute('href')).split('?')[0] : '',
  promoted: s.promotedText ? Array.from(card.querySelectorAll('li'))
    .some(li => (li.innerText || '').trim() === s.promotedText) : false,
};
const target = link || card;
target.scrollIntoView();
target.click();
return out;`}

	// args[1] is the clicked job id.
	scriptDetailsLoaded = browser.Script{Name: "detailsLoaded", Body: `
const s = args[0];
const jobId = args[1];
const description = document.querySelector(s.description);
if (!description || (description.innerText || '').length === 0) {
  return false;
}
if (!jobId) {
  return false;
}
const current = new URL(window.location.href).searchParams.get('currentJobId');
if (current === jobId) {
  return true;
}
const panel = s.detailsPanel ? document.querySelector(s.detailsPanel) : null;
return panel !== null && panel.innerHTML.includes(jobId);`}

	scriptSecondary = browser.Script{Name: "secondaryFields", Body: `
const s = args[0];
const clean = (t) => (t || '').replace(/[\n\r\t ]+/g, ' ').trim();
const one = (sel) => sel ? document.querySelector(sel) : null;
const all = (sel) => sel ? Array.from(document.querySelectorAll(sel)) : [];
const description = one(s.description);
const criteria = {};
all(s.criteria).forEach(li => {
  const label = li.querySelector('h3');
  if (!label) {
    return;
  }
  criteria[clean(label.innerText)] = Array.from(li.querySelectorAll('span'))
    .map(e => clean(e.innerText)).filter(Boolean).join(', ');
});
const apply = one(s.applyLink);
return {
  descriptionText: description ? (description.innerText || '') : '',
  descriptionHtml: description ? description.outerHTML : '',
  insights: [...new Set(all(s.insights).concat(all(s.primaryInfo))
    .map(e => clean(e.textContent)).filter(e => e.length > 1))],
  skills: all(s.skills).map(e => clean(e.innerText)).filter(Boolean),
  salary: one(s.salary) ? clean(one(s.salary).innerText) : '',
  remoteBanner: one(s.remoteBanner) ? clean(one(s.remoteBanner).innerText) : '',
  criteria: criteria,
  applyLink: apply ? (apply.getAttribute('href') || '') : '',
};`}

	scriptHousekeeping = browser.Script{Name: "housekeeping", Body: `
const s = args[0];
if (s.cookieAcceptText) {
  const btn = Array.from(document.querySelectorAll('button'))
    .find(e => (e.innerText || '').includes(s.cookieAcceptText));
  if (btn) {
    btn.click();
  }
}
if (s.chatPanel) {
  const chat = document.querySelector(s.chatPanel);
  if (chat) {
    chat.style.display = 'none';
  }
}
if (s.privacyAcceptBtn) {
  const btn = Array.from(document.querySelectorAll(s.privacyAcceptBtn))
    .find(e => (e.innerText || '').trim() === 'Accept');
  if (btn) {
    btn.click();
  }
}
return true;`}

	scriptClickApply = browser.Script{Name: "clickApply", Body: `
const s = args[0];
const btn = s.applyBtn ? document.querySelector(s.applyBtn) : null;
if (!btn) {
  return false;
}
btn.click();
return true;`}

	scriptLoadMore = browser.Script{Name: "loadMore", Body: `
const s = args[0];
const cards = document.querySelectorAll(s.jobs);
if (cards.length > 0) {
  cards[cards.length - 1].scrollIntoView();
}
const list = document.querySelector(s.container);
if (list) {
  list.scrollTop = list.scrollHeight;
}
window.scrollTo(0, document.body.scrollHeight);
const more = s.seeMoreJobs ? document.querySelector(s.seeMoreJobs) : null;
if (more && more.offsetParent !== null) {
  more.click();
}
return cards.length;`}
)
