package jsshim

// prelude installs the script half of the bridge. It captures the Go entry
// points registered beforehand, removes them from the global scope and
// publishes the __jsbridge control object used by the Go side.
//
// Objects cross to Go as reference ids. Ids taken while a host call runs
// belong to that call's frame and are dropped when it returns; ids taken
// outside any call live in the root set until released. A protected id
// outlives its frame until its last unprotect.
//
// Strings holding unpaired surrogates travel as UTF-16 code units because
// JSON text cannot carry them to Go intact.
const prelude = `(function () {
	"use strict";
	const g = globalThis;
	if (g.__jsbridge) return;

	const host = {};
	for (const k of ["call", "get", "set", "str", "finalize"]) {
		host[k] = g["__jsbridge_" + k];
		delete g["__jsbridge_" + k];
	}

	const refs = new Map();
	const root = new Set();
	const frames = [];
	const pins = new Map();
	const orphans = new Set();
	let nextRef = 1;
	const slots = new WeakMap();
	const classes = new Map();
	const registry = typeof FinalizationRegistry === "function"
		? new FinalizationRegistry(held => host.finalize(JSON.stringify(held)))
		: null;
	const NOT_FOUND = {};

	function ref(v) {
		const id = nextRef++;
		refs.set(id, v);
		if (frames.length === 0) root.add(id);
		else frames[frames.length - 1].push(id);
		return id;
	}

	function drop(id) {
		if (pins.has(id)) orphans.add(id);
		else refs.delete(id);
	}

	function unpaired(s) {
		for (let i = 0; i < s.length; i++) {
			const c = s.charCodeAt(i);
			if (c >= 0xd800 && c <= 0xdbff) {
				const d = s.charCodeAt(i + 1);
				if (d >= 0xdc00 && d <= 0xdfff) {
					i++;
					continue;
				}
				return true;
			}
			if (c >= 0xdc00 && c <= 0xdfff) return true;
		}
		return false;
	}

	function units(s) {
		const u = new Array(s.length);
		for (let i = 0; i < s.length; i++) u[i] = s.charCodeAt(i);
		return u;
	}

	function fromUnits(u) {
		let s = "";
		for (let i = 0; i < u.length; i += 4096) {
			s += String.fromCharCode.apply(null, u.slice(i, i + 4096));
		}
		return s;
	}

	function deref(id) {
		if (!refs.has(id)) throw new ReferenceError("jsbridge: stale reference " + id);
		return refs.get(id);
	}

	function enc(v) {
		switch (typeof v) {
		case "undefined": return {t: "u"};
		case "boolean": return {t: "b", b: v};
		case "number": return {t: "n", v: Object.is(v, -0) ? "-0" : String(v)};
		case "bigint": return {t: "n", v: String(v)};
		case "string": return unpaired(v) ? {t: "s", u: units(v)} : {t: "s", v: v};
		}
		if (v === null) return {t: "z"};
		const w = {t: "o", r: ref(v)};
		const s = slots.get(v);
		if (s !== undefined) {
			w.p = s.p;
			w.c = s.c;
		}
		return w;
	}

	function dec(w) {
		switch (w.t) {
		case "u": return undefined;
		case "z": return null;
		case "b": return w.b === true;
		case "n": return Number(w.v);
		case "s": return w.u ? fromUnits(w.u) : (w.v || "");
		case "e": return new Error(w.v || "");
		case "o": return deref(w.r);
		}
		throw new TypeError("jsbridge: bad wire value " + w.t);
	}

	function enter(fn, build, finish) {
		frames.push([]);
		try {
			const out = JSON.parse(fn(JSON.stringify(build())));
			if (out.x !== undefined) throw dec(out.x);
			return finish(out);
		} finally {
			for (const id of frames.pop()) drop(id);
		}
	}

	function invoke(fn, self, args) {
		return enter(host.call, () => ({f: enc(fn), t: enc(self), a: args.map(enc)}), out => dec(out.r));
	}

	function hostGet(obj, k) {
		return enter(host.get, () => ({o: enc(obj), n: k}), out => out.r === undefined ? NOT_FOUND : dec(out.r));
	}

	function hostSet(obj, k, v) {
		return enter(host.set, () => ({o: enc(obj), n: k, v: enc(v)}), out => out.h === true);
	}

	function convert(obj) {
		return enter(host.str, () => ({o: enc(obj)}), out => dec(out.r));
	}

	function make(c, name, p) {
		const cls = classes.get(c);
		if (cls === undefined) throw new TypeError("jsbridge: unknown class " + c);
		let obj;
		if (cls.callable) {
			obj = function (...args) { return invoke(obj, this, args); };
			Object.defineProperty(obj, "name", {value: name, configurable: true});
			Object.defineProperty(obj, "toString", {
				value: function () { return convert(obj); },
				configurable: true,
				writable: true,
			});
		} else {
			obj = new Proxy({}, {
				get(t, k) {
					if (typeof k === "symbol") return Reflect.get(t, k);
					const v = hostGet(obj, k);
					if (v !== NOT_FOUND) return v;
					if (k === "toString" && !Object.prototype.hasOwnProperty.call(t, k)) {
						return function () { return convert(obj); };
					}
					return Reflect.get(t, k);
				},
				set(t, k, v) {
					if (typeof k !== "symbol" && hostSet(obj, k, v)) return true;
					return Reflect.set(t, k, v);
				},
				has(t, k) {
					if (typeof k !== "symbol" && hostGet(obj, k) !== NOT_FOUND) return true;
					return Reflect.has(t, k);
				},
				getOwnPropertyDescriptor(t, k) {
					const own = Reflect.getOwnPropertyDescriptor(t, k);
					if (own !== undefined || typeof k === "symbol") return own;
					const v = hostGet(obj, k);
					if (v === NOT_FOUND) return undefined;
					return {value: v, writable: true, enumerable: true, configurable: true};
				},
			});
		}
		slots.set(obj, {p: p, c: c});
		if (registry !== null) registry.register(obj, {p: p, c: c});
		return obj;
	}

	function guard(f) {
		try {
			return JSON.stringify({r: f()});
		} catch (e) {
			return JSON.stringify({x: enc(e)});
		}
	}

	Object.defineProperty(g, "__jsbridge", {value: Object.freeze({
		defineClass(c, callable) { classes.set(c, {callable: callable}); },
		make: (c, name, p) => guard(() => enc(make(c, name, p))),
		str: id => guard(() => enc(String(deref(id)))),
		num: id => guard(() => enc(Number(deref(id)))),
		error: msg => JSON.stringify(enc(new Error(msg))),
		box: w => guard(() => enc(Object(dec(w)))),
		install(name, w) { g[name] = dec(w); },
		apply: q => guard(() => enc(Reflect.apply(dec(q.f), dec(q.t), q.a.map(dec)))),
		get: q => guard(() => enc(Reflect.get(dec(q.o), q.n))),
		set: q => guard(() => { dec(q.o)[q.n] = dec(q.v); return enc(undefined); }),
		has: q => guard(() => enc(Reflect.has(dec(q.o), q.n))),
		del: q => guard(() => enc(Reflect.deleteProperty(dec(q.o), q.n))),
		keys: id => guard(() => enc(JSON.stringify(Object.keys(deref(id))))),
		protect(id) {
			deref(id);
			pins.set(id, (pins.get(id) || 0) + 1);
		},
		unprotect(id) {
			const n = pins.get(id);
			if (n === undefined) return;
			if (n > 1) {
				pins.set(id, n - 1);
				return;
			}
			pins.delete(id);
			if (orphans.delete(id)) refs.delete(id);
		},
		detach(id) {
			let s;
			try {
				s = String(deref(id));
			} catch (e) {
				s = "Error";
			}
			if (root.delete(id)) drop(id);
			return s;
		},
		release(id) {
			if (root.delete(id)) drop(id);
		},
		refs: () => refs.size,
	})});
})();
`
